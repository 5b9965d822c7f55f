// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the durable store, the cache store, identity verification,
// notifications, rate limiting, and observability.
//
// Values are parsed from struct tags with caarlos0/env; Load then normalizes
// and validates the result the same way for every caller (server and tests).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool          `env:"ENABLE_HSTS" envDefault:"false"`
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"go-recently-viewed"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_ARG" envDefault:"1.0"`
}

// CacheConfig selects and tunes the cache store.
type CacheConfig struct {
	Backend       string        `env:"CACHE_BACKEND" envDefault:"memory"` // redis|memory
	RedisAddr     string        `env:"REDIS_ADDR"`                        // host:port
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	MaxRetries    int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	TTL           time.Duration `env:"CACHE_TTL" envDefault:"1h"`
}

// AuthConfig configures bearer identity token verification.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`

	// Static token accepted outside production (local development and e2e).
	TestToken     string `env:"AUTH_TEST_TOKEN"`
	TestUserID    string `env:"AUTH_TEST_USER_ID" envDefault:"test-user"`
	TestUserEmail string `env:"AUTH_TEST_USER_EMAIL"`
}

// NotifyConfig configures the repeated-view notification collaborator.
type NotifyConfig struct {
	SMTPHost  string `env:"SMTP_HOST"`
	SMTPPort  int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser  string `env:"SMTP_USER"`
	SMTPPass  string `env:"SMTP_PASS"`
	From      string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`
	Workers   int    `env:"NOTIFY_WORKERS" envDefault:"2"`
	QueueSize int    `env:"NOTIFY_QUEUE" envDefault:"128"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        `env:"PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"20s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MaxHeaderBytes    int           `env:"MAX_HEADER_BYTES" envDefault:"1048576"`
	GinMode           string        `env:"GIN_MODE" envDefault:"release"` // debug|release|test

	// Logging / Docs
	AppEnv         string `env:"APP_ENV" envDefault:"production"` // development|test|production
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SwaggerEnabled bool   `env:"SWAGGER_ENABLED" envDefault:"false"`
	APIBasePath    string `env:"API_BASE_PATH" envDefault:"/api/v1"`

	// Durable store
	DBPath       string `env:"DB_PATH" envDefault:"app.db"`
	SeedProducts bool   `env:"SEED_PRODUCTS" envDefault:"false"`
	// Queries slower than DBSlowQuery are logged at warn. 0 turns it off.
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBSlowQuery    time.Duration `env:"DB_SLOW_QUERY" envDefault:"200ms"`

	// Recency / ranking
	RecencyBound    int `env:"RECENCY_BOUND" envDefault:"10"`
	TopN            int `env:"TOP_N" envDefault:"10"`
	NotifyThreshold int `env:"NOTIFY_THRESHOLD" envDefault:"3"`

	// Rate limiting per client IP and, for recorded views, per user.
	// An rps of 0 disables the limiter. The per-user view limiter is opt-in.
	RateRPS       float64 `env:"RATE_RPS" envDefault:"5"`
	RateBurst     int     `env:"RATE_BURST" envDefault:"10"`
	ViewRateRPS   float64 `env:"VIEW_RATE_RPS" envDefault:"0"`
	ViewRateBurst int     `env:"VIEW_RATE_BURST" envDefault:"20"`

	Cache    CacheConfig
	Auth     AuthConfig
	Notify   NotifyConfig
	CORS     CORSConfig
	Security SecurityConfig
	OTEL     OTELConfig
}

// IsProduction reports whether the process runs with production semantics
// (no error details in responses, no static test token).
func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	normalize(&cfg)
	return cfg, Validate(cfg)
}

func normalize(cfg *Config) {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	cfg.GinMode = strings.ToLower(cfg.GinMode)
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	switch cfg.AppEnv {
	case "dev":
		cfg.AppEnv = "development"
	case "prod", "":
		cfg.AppEnv = "production"
	}
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	cfg.CORS.AllowedOrigins = trimAll(cfg.CORS.AllowedOrigins)
}

// Validate checks cross-field constraints on an already parsed Config.
func Validate(cfg Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	switch cfg.AppEnv {
	case "development", "test", "production":
	default:
		return errors.New("APP_ENV must be one of: development, test, production")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if cfg.DBMaxOpenConns < 1 {
		return errors.New("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.DBSlowQuery < 0 {
		return errors.New("DB_SLOW_QUERY must be >= 0")
	}
	if cfg.RecencyBound < 1 {
		return errors.New("RECENCY_BOUND must be >= 1")
	}
	if cfg.TopN < 1 {
		return errors.New("TOP_N must be >= 1")
	}
	if cfg.NotifyThreshold < 0 {
		return errors.New("NOTIFY_THRESHOLD must be >= 0")
	}
	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis")
		}
	default:
		return errors.New("CACHE_BACKEND must be one of: redis, memory")
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Cache.MaxRetries < 0 {
		return errors.New("REDIS_MAX_RETRIES must be >= 0")
	}
	if cfg.Notify.Workers < 1 || cfg.Notify.QueueSize < 1 {
		return errors.New("NOTIFY_WORKERS and NOTIFY_QUEUE must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.ViewRateRPS < 0 {
		return errors.New("VIEW_RATE_RPS must be >= 0")
	}
	if cfg.ViewRateBurst < 1 {
		return errors.New("VIEW_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
