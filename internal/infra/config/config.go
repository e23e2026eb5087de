package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Export   ExportConfig   `yaml:"export"`
	Provider ProviderConfig `yaml:"provider"`
	Tracking TrackingConfig `yaml:"tracking"`
	Stats    StatsConfig    `yaml:"stats"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address            string          `yaml:"address"`
	ReadTimeout        time.Duration   `yaml:"readTimeout"`
	WriteTimeout       time.Duration   `yaml:"writeTimeout"`
	CORSAllowedOrigins []string        `yaml:"corsAllowedOrigins"`
	RateLimit          RateLimitConfig `yaml:"rateLimit"`
	Retry              RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries for idempotent requests.
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Exclude     []string      `yaml:"exclude"`
}

// StorageConfig selects and configures the observation store.
type StorageConfig struct {
	Driver       string         `yaml:"driver"`
	QueryTimeout time.Duration  `yaml:"queryTimeout"`
	Postgres     PostgresConfig `yaml:"postgres"`
	SQLite       SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// SQLiteConfig points at the embedded database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// ExportConfig controls how exports present instants and where copies are archived.
type ExportConfig struct {
	Timezone        string        `yaml:"timezone"`
	TimestampLayout string        `yaml:"timestampLayout"`
	Archive         ArchiveConfig `yaml:"archive"`
}

// ArchiveConfig holds S3-compatible object storage settings.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// ProviderConfig contains OpenWeather settings.
type ProviderConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseUrl"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	MaxRetries        int           `yaml:"maxRetries"`
	InitialBackoff    time.Duration `yaml:"initialBackoff"`
	MaxBackoff        time.Duration `yaml:"maxBackoff"`
}

// TrackingConfig lists locations refreshed on a schedule.
type TrackingConfig struct {
	Locations []string      `yaml:"locations"`
	Interval  time.Duration `yaml:"interval"`
}

// StatsConfig controls search statistics storage.
type StatsConfig struct {
	TrendingLimit   int         `yaml:"trendingLimit"`
	DefaultPageSize int         `yaml:"defaultPageSize"`
	MaxPageSize     int         `yaml:"maxPageSize"`
	Redis           RedisConfig `yaml:"redis"`
}

// RedisConfig contains connection information for the Valkey/Redis server.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file, an optional .env file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	// variables already present in the environment win over .env entries.
	envFile := os.Getenv("DOTENV_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_WRITE_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.WriteTimeout = parsed
		}
	}
	if v := os.Getenv("HTTP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_BASE_BACKOFF"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Retry.BaseBackoff = parsed
		}
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("STORAGE_QUERY_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Storage.QueryTimeout = parsed
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLite.Path = v
	}
	if v := os.Getenv("EXPORT_TIMEZONE"); v != "" {
		cfg.Export.Timezone = v
	}
	if v := os.Getenv("EXPORT_TIMESTAMP_LAYOUT"); v != "" {
		cfg.Export.TimestampLayout = v
	}
	if v := os.Getenv("EXPORT_ARCHIVE_ENABLED"); v != "" {
		cfg.Export.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("EXPORT_ARCHIVE_ENDPOINT"); v != "" {
		cfg.Export.Archive.Endpoint = v
	}
	if v := os.Getenv("EXPORT_ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.Export.Archive.AccessKey = v
	}
	if v := os.Getenv("EXPORT_ARCHIVE_SECRET_KEY"); v != "" {
		cfg.Export.Archive.SecretKey = v
	}
	if v := os.Getenv("EXPORT_ARCHIVE_BUCKET"); v != "" {
		cfg.Export.Archive.Bucket = v
	}
	if v := os.Getenv("EXPORT_ARCHIVE_REGION"); v != "" {
		cfg.Export.Archive.Region = v
	}
	if v := os.Getenv("OPENWEATHER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("OPENWEATHER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("OPENWEATHER_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Provider.RequestsPerSecond = parsed
		}
	}
	if v := os.Getenv("TRACKING_LOCATIONS"); v != "" {
		cfg.Tracking.Locations = splitList(v)
	}
	if v := os.Getenv("TRACKING_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Tracking.Interval = parsed
		}
	}
	if v := os.Getenv("STATS_REDIS_ENABLED"); v != "" {
		cfg.Stats.Redis.Enabled = parseBool(v)
	}
	if v := os.Getenv("STATS_REDIS_ADDR"); v != "" {
		cfg.Stats.Redis.Addr = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			CORSAllowedOrigins: []string{
				"http://localhost:3000",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             20,
			},
			Retry: RetryConfig{
				Enabled:     true,
				MaxAttempts: 2,
				BaseBackoff: 200 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Driver:       "memory",
			QueryTimeout: 30 * time.Second,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			SQLite: SQLiteConfig{
				Path: "data/weather.db",
			},
		},
		Export: ExportConfig{
			Timezone:        "UTC",
			TimestampLayout: "1/2/2006, 3:04:05 PM",
			Archive: ArchiveConfig{
				Region: "auto",
			},
		},
		Provider: ProviderConfig{
			BaseURL:           "https://api.openweathermap.org",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
			Burst:             5,
			MaxRetries:        3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
		},
		Tracking: TrackingConfig{
			Interval: 15 * time.Minute,
		},
		Stats: StatsConfig{
			TrendingLimit:   10,
			DefaultPageSize: 10,
			MaxPageSize:     100,
			Redis: RedisConfig{
				Prefix: "weather",
			},
		},
	}
}

// Location resolves the export timezone.
func (c *Config) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Export.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Export.Timezone)
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	switch c.Storage.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("storage.driver %q must be one of memory, postgres, sqlite", c.Storage.Driver)
	}
	if c.Storage.QueryTimeout <= 0 {
		return errors.New("storage.queryTimeout must be positive")
	}
	if c.Storage.Driver == "sqlite" && strings.TrimSpace(c.Storage.SQLite.Path) == "" {
		return errors.New("storage.sqlite.path cannot be empty when the sqlite driver is selected")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("export.timezone: %w", err)
	}
	if strings.TrimSpace(c.Export.TimestampLayout) == "" {
		return errors.New("export.timestampLayout cannot be empty")
	}
	if a := c.Export.Archive; a.Enabled && (strings.TrimSpace(a.Endpoint) == "" || strings.TrimSpace(a.Bucket) == "") {
		return errors.New("export.archive.endpoint and bucket are required when the archive is enabled")
	}
	if c.Provider.RequestsPerSecond <= 0 {
		return errors.New("provider.requestsPerSecond must be positive")
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("provider.maxRetries cannot be negative")
	}
	if len(c.Tracking.Locations) > 0 && c.Tracking.Interval < time.Minute {
		return errors.New("tracking.interval must be at least one minute")
	}
	if c.Stats.TrendingLimit < 0 {
		return errors.New("stats.trendingLimit cannot be negative")
	}
	if c.Stats.MaxPageSize < c.Stats.DefaultPageSize {
		return errors.New("stats.maxPageSize cannot be smaller than stats.defaultPageSize")
	}
	if c.Stats.Redis.Enabled && strings.TrimSpace(c.Stats.Redis.Addr) == "" {
		return errors.New("stats.redis.addr cannot be empty when redis is enabled")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	if c.HTTP.WriteTimeout > 0 {
		if budget := c.RequestBudget(); c.HTTP.WriteTimeout <= budget {
			return fmt.Errorf("http.writeTimeout %s must exceed the worst-case request time %s (query timeout per attempt plus retry backoff)", c.HTTP.WriteTimeout, budget)
		}
	}
	return nil
}

// RequestBudget is the longest a request can spend waiting on the store: every retry
// attempt may run into the query timeout, with the exponential backoff in between.
func (c *Config) RequestBudget() time.Duration {
	attempts := 1
	if c.HTTP.Retry.Enabled && c.HTTP.Retry.MaxAttempts > 1 {
		attempts = c.HTTP.Retry.MaxAttempts
	}
	budget := time.Duration(attempts) * c.Storage.QueryTimeout
	for attempt := 2; attempt <= attempts; attempt++ {
		budget += c.HTTP.Retry.BaseBackoff * time.Duration(1<<(attempt-2))
	}
	return budget
}
