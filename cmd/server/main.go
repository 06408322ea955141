// Command server runs the givebridge API: the HTTP identity gateway and directory
// routes on HTTP_ADDR and the gRPC health service on GRPC_ADDR.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"givebridge/backend/internal/audit"
	"givebridge/backend/internal/config"
	"givebridge/backend/internal/db"
	healthhandler "givebridge/backend/internal/health/handler"
	"givebridge/backend/internal/identity/events"
	identityhandler "givebridge/backend/internal/identity/handler"
	"givebridge/backend/internal/identity/service"
	"givebridge/backend/internal/logger"
	"givebridge/backend/internal/platform/dedup"
	"givebridge/backend/internal/platform/rbac"
	"givebridge/backend/internal/security"
	"givebridge/backend/internal/server"
	"givebridge/backend/internal/server/middleware"
	"givebridge/backend/internal/telemetry"
	otelsetup "givebridge/backend/internal/telemetry/otel"
	"givebridge/backend/internal/telemetry/producer"
	"givebridge/backend/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secret, err := security.LoadSecret(cfg.IdPSecretKey)
	if err != nil {
		return err
	}
	verifier, err := security.NewVerifier(secret, security.WithLeeway(cfg.JWTLeeway))
	if err != nil {
		return err
	}
	var webhookVerifier *security.WebhookVerifier
	if cfg.WebhookSigningSecret != "" {
		if webhookVerifier, err = security.NewWebhookVerifier(cfg.WebhookSigningSecret); err != nil {
			return err
		}
	} else {
		log.Warn("WEBHOOK_SIGNING_SECRET not set; webhook deliveries are accepted unsigned")
	}

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	store, pinger, closeStore, err := openDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	dir := repository.WithTimeout(store, cfg.DirectoryTimeout)

	eventCounter, err := otelsetup.NewEventCounter(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}
	emitters := []telemetry.EventEmitter{
		audit.NewLogger(log),
		otelsetup.NewEventEmitter(providers.LoggerProvider),
		eventCounter,
	}
	var kafkaProducer producer.Producer
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.DirectoryEventsTopic); kp != nil {
		kafkaProducer = kp
		emitters = append(emitters, kp)
		log.Info("directory events produced to kafka", zap.String("topic", cfg.DirectoryEventsTopic))
	}
	emitter := telemetry.Multi(emitters...)

	deliveries, closeDedup, err := openDedup(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDedup()

	gateway := middleware.NewGateway(verifier, dir, cfg.ActivityTouchInterval, log)
	accounts := service.NewAccountService(dir, emitter, log)
	processor := events.NewProcessor(dir,
		events.WithEmitter(emitter),
		events.WithLogger(log),
		events.WithDedup(deliveries, cfg.WebhookDedupTTL),
	)
	admins := rbac.NewAdmins(cfg.AdminExternalIDList()...)
	if len(admins) == 0 {
		log.Warn("ADMIN_EXTERNAL_IDS is empty; admin routes will reject every caller")
	}
	health := healthhandler.NewServer(pinger, cfg.ServiceName, log)

	router := server.NewRouter(server.HTTPDeps{
		ServiceName: cfg.ServiceName,
		Logger:      log,
		Health:      health,
		Auth:        identityhandler.NewAuthHandler(accounts, gateway),
		Webhook:     identityhandler.NewWebhookHandler(processor, webhookVerifier, log),
		Users:       identityhandler.NewUsersHandler(accounts, gateway, admins),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := server.NewGRPCServer()
	server.RegisterServices(grpcSrv, server.Deps{Health: health, Reflection: !cfg.IsProduction()})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		log.Info("grpc server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
		log.Error("server failed, shutting down", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	// Let in-flight async emits finish before the exporters go away.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Warn("kafka producer close", zap.Error(err))
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
	log.Info("stopped")
	return serveErr
}

// openDirectory returns the Postgres directory when DATABASE_URL is set and the
// in-memory directory otherwise. pinger is nil for the in-memory store.
func openDirectory(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.Repository, healthhandler.Pinger, func(), error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, nil, nil, errors.New("DATABASE_URL must be set in production")
		}
		log.Warn("DATABASE_URL not set; using in-memory directory (data is lost on restart)")
		mem, err := repository.NewMemoryRepository()
		if err != nil {
			return nil, nil, nil, err
		}
		return mem, nil, func() {}, nil
	}
	openCtx, cancel := context.WithTimeout(ctx, cfg.DirectoryTimeout)
	defer cancel()
	conn, err := db.Open(openCtx, cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database: %w", err)
	}
	closeFn := func() {
		if err := conn.Close(); err != nil {
			log.Warn("database close", zap.Error(err))
		}
	}
	return repository.NewPostgresRepository(conn), conn, closeFn, nil
}

// openDedup returns the Redis delivery store when REDIS_ADDR is set and an in-process store otherwise.
func openDedup(ctx context.Context, cfg *config.Config, log *zap.Logger) (dedup.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set; webhook delivery dedup is per process")
		return dedup.NewMemoryStore(), func() {}, nil
	}
	client, err := dedup.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close", zap.Error(err))
		}
	}
	return dedup.NewRedisStore(client), closeFn, nil
}
