package config

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	apperrors "givebridge/backend/internal/platform/errors"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Clearenv()
	t.Setenv("IDP_SECRET_KEY", "sk_test_secret")
	t.Setenv("IDP_PUBLISHABLE_KEY", "pk_test_key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.DirectoryTimeout != 3*time.Second {
		t.Errorf("DirectoryTimeout = %v, want 3s", cfg.DirectoryTimeout)
	}
	if cfg.ActivityTouchInterval != time.Minute {
		t.Errorf("ActivityTouchInterval = %v, want 1m", cfg.ActivityTouchInterval)
	}
	if cfg.WebhookDedupTTL != 24*time.Hour {
		t.Errorf("WebhookDedupTTL = %v, want 24h", cfg.WebhookDedupTTL)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty (in-memory directory)", cfg.DatabaseURL)
	}
	if cfg.DirectoryEventsTopic != "givebridge-directory-events" {
		t.Errorf("DirectoryEventsTopic = %q", cfg.DirectoryEventsTopic)
	}
	if cfg.IsProduction() {
		t.Error("default env should not be production")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("DIRECTORY_TIMEOUT", "250ms")
	t.Setenv("JWT_LEEWAY", "5s")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/givebridge")
	t.Setenv("WEBHOOK_SIGNING_SECRET", "whsec_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":7070")
	}
	if cfg.DirectoryTimeout != 250*time.Millisecond {
		t.Errorf("DirectoryTimeout = %v, want 250ms", cfg.DirectoryTimeout)
	}
	if cfg.JWTLeeway != 5*time.Second {
		t.Errorf("JWTLeeway = %v, want 5s", cfg.JWTLeeway)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestLoad_MissingSecretsIsConfigurationError(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"secret key", "IDP_SECRET_KEY"},
		{"publishable key", "IDP_PUBLISHABLE_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			os.Unsetenv(tt.unset)

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load should fail without %s, got %+v", tt.unset, cfg)
			}
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Errorf("err = %v, want configuration_error", err)
			}
		})
	}
}

func TestLoad_ProductionRequiresWebhookSecretAndDatabase(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"webhook signing secret", "WEBHOOK_SIGNING_SECRET"},
		{"database url", "DATABASE_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("APP_ENV", "production")
			t.Setenv("DATABASE_URL", "postgres://localhost/givebridge")
			t.Setenv("WEBHOOK_SIGNING_SECRET", "whsec_test")
			os.Unsetenv(tt.unset)

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load should fail in production without %s, got %+v", tt.unset, cfg)
			}
			if !errors.Is(err, apperrors.ErrConfiguration) {
				t.Errorf("err = %v, want configuration_error", err)
			}
		})
	}
}

func TestLoad_DevelopmentAllowsUnsignedWebhooks(t *testing.T) {
	setRequired(t)
	if _, err := Load(); err != nil {
		t.Errorf("Load without webhook secret outside production: %v", err)
	}
}

func TestLoad_NonPositiveDirectoryTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("DIRECTORY_TIMEOUT", "0s")
	if _, err := Load(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("err = %v, want configuration_error", err)
	}
}

func TestKafkaBrokersList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{" a:9092 , ,b:9092 ", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		cfg := &Config{KafkaBrokers: tt.in}
		if got := cfg.KafkaBrokersList(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("KafkaBrokersList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
}

func TestAdminExternalIDList(t *testing.T) {
	cfg := &Config{AdminExternalIDs: "user_admin1, user_admin2"}
	want := []string{"user_admin1", "user_admin2"}
	if got := cfg.AdminExternalIDList(); !reflect.DeepEqual(got, want) {
		t.Errorf("AdminExternalIDList = %v, want %v", got, want)
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	os.Clearenv()
	t.Setenv("DATABASE_URL", "postgres://localhost/givebridge")

	cfg, err := Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/givebridge" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if err := cfg.Validate(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("Validate without provider keys = %v, want configuration error", err)
	}
}
