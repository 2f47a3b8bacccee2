package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Config holds the settings for the kit8 command line client.
type Config struct {
	Environment     string        `env:"ENVIRONMENT,default=dev"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	APIBaseURL      string        `env:"KIT8_API_BASE_URL,default=http://localhost:3000/api"`
	TokenStore      string        `env:"KIT8_TOKEN_STORE,default=file"` // file or redis
	TokenFile       string        `env:"KIT8_TOKEN_FILE"`               // defaults to tokenstore.DefaultPath()
	RedisURL        string        `env:"KIT8_REDIS_URL"`                // required when KIT8_TOKEN_STORE=redis
	HTTPTimeout     time.Duration `env:"KIT8_HTTP_TIMEOUT,default=30s"`
	CacheTTL        time.Duration `env:"KIT8_CACHE_TTL,default=60s"`
	CacheMaxEntries int           `env:"KIT8_CACHE_MAX_ENTRIES,default=1024"`
	RateLimitRPS    float64       `env:"KIT8_RATE_LIMIT_RPS,default=0"` // 0 disables client side rate limiting
	RateLimitBurst  int           `env:"KIT8_RATE_LIMIT_BURST,default=5"`
	TraceExporter   string        `env:"KIT8_TRACE_EXPORTER,default=none"` // none, stdout or otlp
	OTelEndpoint    string        `env:"KIT8_OTEL_ENDPOINT"`               // OTLP/HTTP collector URL
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"perf":    true,
	"prod":    true,
	"staging": true,
}

// NewConfig loads the configuration from the environment and validates it.
func NewConfig() (*Config, error) {
	var cfg Config

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid environment '%s'. Valid environments: dev, test, perf, staging, prod", cfg.Environment)
	}

	if cfg.APIBaseURL == "" {
		return fmt.Errorf("KIT8_API_BASE_URL cannot be empty")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return fmt.Errorf("KIT8_API_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("KIT8_API_BASE_URL must be an http or https URL, got %q", cfg.APIBaseURL)
	}

	switch cfg.TokenStore {
	case "file":
	case "redis":
		if cfg.RedisURL == "" {
			return fmt.Errorf("KIT8_REDIS_URL must be set when KIT8_TOKEN_STORE is redis")
		}
	default:
		return fmt.Errorf("invalid token store '%s'. Valid stores: file, redis", cfg.TokenStore)
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout cannot be negative, got %v", cfg.HTTPTimeout)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", cfg.CacheTTL)
	}
	if cfg.CacheMaxEntries < 1 {
		return fmt.Errorf("cache max entries must be at least 1, got %d", cfg.CacheMaxEntries)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("rate limit rps cannot be negative, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1 when rate limiting is enabled, got %d", cfg.RateLimitBurst)
	}

	switch cfg.TraceExporter {
	case "none", "stdout":
	case "otlp":
		if cfg.OTelEndpoint == "" {
			return fmt.Errorf("KIT8_OTEL_ENDPOINT must be set when KIT8_TRACE_EXPORTER is otlp")
		}
	default:
		return fmt.Errorf("invalid trace exporter '%s'. Valid exporters: none, stdout, otlp", cfg.TraceExporter)
	}

	return nil
}
