package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "standardhub.yaml"

var validRisk = map[string]bool{"LOW": true, "MEDIUM": true, "HIGH": true}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "STANDARDHUB_PORT")
	setString(&cfg.Server.CORSOrigin, "STANDARDHUB_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "STANDARDHUB_REQUEST_TIMEOUT")
	setString(&cfg.Storage.Driver, "STANDARDHUB_STORAGE")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "STANDARDHUB_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "STANDARDHUB_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "STANDARDHUB_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "STANDARDHUB_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "STANDARDHUB_PG_HEALTH_CHECK")
	setBool(&cfg.Postgres.AutoMigrate, "STANDARDHUB_PG_AUTO_MIGRATE")

	setBool(&cfg.NATS.Enabled, "STANDARDHUB_NATS_ENABLED")
	setString(&cfg.NATS.URL, "NATS_URL")

	setString(&cfg.Logging.Level, "STANDARDHUB_LOG_LEVEL")
	setString(&cfg.Logging.Service, "STANDARDHUB_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "STANDARDHUB_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "STANDARDHUB_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "STANDARDHUB_BREAKER_TIMEOUT")

	setFloat64(&cfg.Rate.RequestsPerSecond, "STANDARDHUB_RATE_RPS")
	setInt(&cfg.Rate.Burst, "STANDARDHUB_RATE_BURST")
	setDuration(&cfg.Rate.MaxIdleTime, "STANDARDHUB_RATE_MAX_IDLE_TIME")

	setInt64(&cfg.Cache.L1MaxSizeMB, "STANDARDHUB_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "STANDARDHUB_CACHE_TTL")
	setString(&cfg.Cache.KVBucket, "STANDARDHUB_CACHE_KV_BUCKET")
	setDuration(&cfg.Cache.IdempotencyTTL, "STANDARDHUB_IDEMPOTENCY_TTL")

	// MCP
	setBool(&cfg.MCP.Enabled, "STANDARDHUB_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "STANDARDHUB_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "STANDARDHUB_MCP_API_KEY")

	// OpenTelemetry
	setBool(&cfg.OTEL.Enabled, "STANDARDHUB_OTEL_ENABLED")
	setString(&cfg.OTEL.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "STANDARDHUB_OTEL_INSECURE")
	setFloat64(&cfg.OTEL.SampleRate, "STANDARDHUB_OTEL_SAMPLE_RATE")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver %q must be postgres or memory", cfg.Storage.Driver)
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	if cfg.NATS.Enabled && cfg.Cache.KVBucket == "" {
		return errors.New("cache.kv_bucket is required when nats is enabled")
	}
	if cfg.MCP.Enabled && cfg.MCP.Addr == "" {
		return errors.New("mcp.addr is required when mcp is enabled")
	}
	if cfg.OTEL.SampleRate < 0 || cfg.OTEL.SampleRate > 1 {
		return errors.New("otel.sample_rate must be between 0 and 1")
	}
	for target, risk := range cfg.Feedback.DefaultRisk {
		if !validRisk[risk] {
			return fmt.Errorf("feedback.default_risk.%s: invalid risk level %q", target, risk)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
