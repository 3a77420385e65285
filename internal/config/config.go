// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Required by cmd/server and cmd/migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DefaultTenantKey is the tenant used when a webhook carries no tenant hint.
	DefaultTenantKey string `mapstructure:"DEFAULT_TENANT_KEY"`
	// DrupalWebhookSecret is the shared secret for the Drupal-style webhook.
	// Unset means the endpoint answers 500 (misconfiguration, not an auth failure).
	DrupalWebhookSecret string `mapstructure:"DRUPAL_WEBHOOK_SECRET"`
	// MetaVerifyToken is the token echoed-challenge verification (GET) must match.
	MetaVerifyToken string `mapstructure:"META_VERIFY_TOKEN"`
	// MetaAppSecret is the HMAC key for x-hub-signature-256 validation on Meta deliveries.
	MetaAppSecret string `mapstructure:"META_APP_SECRET"`
	// MetaAccessToken is the Graph API token for the secondary lead-details fetch.
	MetaAccessToken string `mapstructure:"META_ACCESS_TOKEN"`
	// MetaGraphBaseURL overrides the Graph API base URL (default https://graph.facebook.com/v19.0).
	MetaGraphBaseURL string `mapstructure:"META_GRAPH_BASE_URL"`
	// MetaDevMode enables the signature bypass (x-dev-bypass header) and canned Graph
	// leads. Must not be true when Env is production (load fails). Every bypassed
	// request is logged.
	MetaDevMode bool `mapstructure:"META_DEV_MODE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// OperatorJWTSecret is the HS256 key for operator endpoints (group/mapping
	// writes). Unset disables operator auth, matching deployments fronted by a
	// trusted proxy; the server logs that once at startup.
	OperatorJWTSecret string `mapstructure:"OPERATOR_JWT_SECRET"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint. Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// StreamPollInterval is how often each live channel re-reads the latest lead (e.g. "1s").
	StreamPollInterval string `mapstructure:"POLL_INTERVAL"`
	// StreamKeepAliveInterval is how often idle channels emit a keep-alive comment (e.g. "15s").
	StreamKeepAliveInterval string `mapstructure:"KEEPALIVE_INTERVAL"`
	// GraphTimeout bounds a single Graph lead-details request (e.g. "15s").
	GraphTimeout string `mapstructure:"GRAPH_TIMEOUT"`
	// GraphMaxRetries is how many times a failed Graph fetch is retried before the item is skipped.
	GraphMaxRetries int `mapstructure:"GRAPH_MAX_RETRIES"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DEFAULT_TENANT_KEY", "default")
	v.SetDefault("DRUPAL_WEBHOOK_SECRET", "")
	v.SetDefault("META_VERIFY_TOKEN", "")
	v.SetDefault("META_APP_SECRET", "")
	v.SetDefault("META_ACCESS_TOKEN", "")
	v.SetDefault("META_GRAPH_BASE_URL", "https://graph.facebook.com/v19.0")
	v.SetDefault("META_DEV_MODE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OPERATOR_JWT_SECRET", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("POLL_INTERVAL", "1s")
	v.SetDefault("KEEPALIVE_INTERVAL", "15s")
	v.SetDefault("GRAPH_TIMEOUT", "15s")
	v.SetDefault("GRAPH_MAX_RETRIES", 3)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.DefaultTenantKey == "" {
		return nil, errors.New("config: DEFAULT_TENANT_KEY must be set")
	}

	if cfg.MetaDevMode && cfg.Env == "production" {
		return nil, errors.New("config: META_DEV_MODE must not be true when APP_ENV=production")
	}

	if cfg.GraphMaxRetries < 0 {
		return nil, errors.New("config: GRAPH_MAX_RETRIES must not be negative")
	}

	return &cfg, nil
}

// PollInterval parses StreamPollInterval as a time.Duration. Returns 1s if unset or invalid.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.StreamPollInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// KeepAliveInterval parses StreamKeepAliveInterval as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) KeepAliveInterval() time.Duration {
	d, err := time.ParseDuration(c.StreamKeepAliveInterval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GraphFetchTimeout parses GraphTimeout as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) GraphFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.GraphTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}
