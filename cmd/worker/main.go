// Worker consumes directory events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, DIRECTORY_EVENTS_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"givebridge/backend/internal/config"
	"givebridge/backend/internal/logger"
	"givebridge/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Env, "givebridge-worker")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	client, err := loki.NewClient(cfg.LokiURL, nil)
	if err != nil {
		log.Fatal("worker: LOKI_URL is required", zap.Error(err))
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    cfg.DirectoryEventsTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker: consuming",
		zap.String("topic", cfg.DirectoryEventsTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki", cfg.LokiURL),
	)
	consume(ctx, reader, client, log)
	log.Info("worker: stopped")
}

// messageSource is the subset of *kafka.Reader the consume loop needs.
type messageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type eventSink interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// consume forwards messages until ctx is done. An offset is committed after a successful push
// or after maxPushAttempts failed pushes, never before.
func consume(ctx context.Context, src messageSource, sink eventSink, log *zap.Logger) {
	for {
		msg, err := src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("worker: kafka fetch error", zap.Error(err))
			continue
		}
		if !forward(ctx, sink, msg, log) && ctx.Err() != nil {
			return
		}
		if err := src.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Warn("worker: commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

const (
	maxPushAttempts = 3
	pushTimeout     = 10 * time.Second
)

var pushBackoff = 500 * time.Millisecond

func forward(ctx context.Context, sink eventSink, msg kafka.Message, log *zap.Logger) bool {
	for attempt := 1; attempt <= maxPushAttempts; attempt++ {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		err := sink.PushEventJSON(pushCtx, msg.Value)
		cancel()
		if err == nil {
			return true
		}
		log.Warn("worker: loki push failed",
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * pushBackoff):
		}
	}
	return false
}
