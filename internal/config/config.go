// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "givebridge/backend/internal/platform/errors"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory directory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// IdPSecretKey verifies provider-issued credentials (HS256). Inline value or "file:" path. Required.
	IdPSecretKey string `mapstructure:"IDP_SECRET_KEY"`
	// IdPPublishableKey identifies the provider instance to clients. Required.
	IdPPublishableKey string `mapstructure:"IDP_PUBLISHABLE_KEY"`
	// JWTLeeway is the clock skew tolerated on exp/nbf/iat (e.g. "5s").
	JWTLeeway time.Duration `mapstructure:"JWT_LEEWAY"`

	// DirectoryTimeout bounds every directory call; exceeded calls fail with directory_unavailable.
	DirectoryTimeout time.Duration `mapstructure:"DIRECTORY_TIMEOUT"`
	// ActivityTouchInterval throttles last-activity writes per identity.
	ActivityTouchInterval time.Duration `mapstructure:"ACTIVITY_TOUCH_INTERVAL"`

	// WebhookSigningSecret enables svix-style signature checks on the webhook when set.
	WebhookSigningSecret string `mapstructure:"WEBHOOK_SIGNING_SECRET"`
	// WebhookDedupTTL is how long a delivered message id is remembered.
	WebhookDedupTTL time.Duration `mapstructure:"WEBHOOK_DEDUP_TTL"`
	// RedisAddr enables the Redis dedup store when set; otherwise dedup is in-process.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// AdminExternalIDs is a comma-separated list of provider ids allowed to use admin routes.
	AdminExternalIDs string `mapstructure:"ADMIN_EXTERNAL_IDS"`

	// Telemetry (optional). When Kafka brokers are set, directory events are produced to Kafka.
	KafkaBrokers         string `mapstructure:"KAFKA_BROKERS"`
	DirectoryEventsTopic string `mapstructure:"DIRECTORY_EVENTS_TOPIC"`
	// Worker-only: consumer group and Loki push URL (e.g. http://localhost:3100).
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	LokiURL      string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint is the OTLP gRPC collector address; empty disables OTel export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment ("development", "production").
	Env         string `mapstructure:"APP_ENV"`
	ServiceName string `mapstructure:"SERVICE_NAME"`
}

// Load reads and validates the API server's Config. A missing provider secret or
// publishable key is a configuration_error; the server must not start without them.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads .env (if present), then builds Config from the environment via Viper without
// validating it. Missing .env is ignored (e.g. in CI). Env vars override .env.
// Used by the migrate and worker commands, which do not need provider keys.
func Read() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("IDP_SECRET_KEY", "")
	v.SetDefault("IDP_PUBLISHABLE_KEY", "")
	v.SetDefault("JWT_LEEWAY", "0s")
	v.SetDefault("DIRECTORY_TIMEOUT", "3s")
	v.SetDefault("ACTIVITY_TOUCH_INTERVAL", "1m")
	v.SetDefault("WEBHOOK_SIGNING_SECRET", "")
	v.SetDefault("WEBHOOK_DEDUP_TTL", "24h")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("ADMIN_EXTERNAL_IDS", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("DIRECTORY_EVENTS_TOPIC", "givebridge-directory-events")
	v.SetDefault("KAFKA_GROUP_ID", "givebridge-directory-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVICE_NAME", "givebridge-api")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, "config: decode", err)
	}
	return &cfg, nil
}

// Validate reports the first missing or out-of-range setting as a configuration_error.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.IdPSecretKey) == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: IDP_SECRET_KEY must be set")
	case strings.TrimSpace(c.IdPPublishableKey) == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: IDP_PUBLISHABLE_KEY must be set")
	case c.HTTPAddr == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: HTTP_ADDR must be set")
	case c.GRPCAddr == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: GRPC_ADDR must be set")
	case c.DirectoryTimeout <= 0:
		return apperrors.New(apperrors.CodeConfiguration, "config: DIRECTORY_TIMEOUT must be positive")
	case c.JWTLeeway < 0:
		return apperrors.New(apperrors.CodeConfiguration, "config: JWT_LEEWAY must not be negative")
	case c.ActivityTouchInterval < 0:
		return apperrors.New(apperrors.CodeConfiguration, "config: ACTIVITY_TOUCH_INTERVAL must not be negative")
	case c.IsProduction() && strings.TrimSpace(c.WebhookSigningSecret) == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: WEBHOOK_SIGNING_SECRET must be set in production")
	case c.IsProduction() && strings.TrimSpace(c.DatabaseURL) == "":
		return apperrors.New(apperrors.CodeConfiguration, "config: DATABASE_URL must be set in production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the directory event producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// AdminExternalIDList returns the provider ids allowed on admin routes.
func (c *Config) AdminExternalIDList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.AdminExternalIDs)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
