package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/platinummonkey/panelhub/pkg/storage"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Code store backends
const (
	CodeStoreMemory = "memory"
	CodeStoreRedis  = "redis"
)

// minSecretLength is the shortest accepted HMAC secret
const minSecretLength = 16

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       storage.Config      `yaml:"storage"`
	Codes         CodesConfig         `yaml:"codes"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Quests        QuestsConfig        `yaml:"quests"`
	Accounts      AccountsConfig      `yaml:"accounts"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`

	// Origins allowed for CORS and realtime handshakes; "*" allows any
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// AuthConfig holds bearer token and identity lookup settings
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTIssuer         string        `yaml:"jwt_issuer"`
	IdentityCacheSize int           `yaml:"identity_cache_size"`
	IdentityCacheTTL  time.Duration `yaml:"identity_cache_ttl"`
	DevTokenTTL       time.Duration `yaml:"dev_token_ttl"`
}

// CodesConfig holds verification code store settings
type CodesConfig struct {
	StoreType     string        `yaml:"store_type"`
	TTL           time.Duration `yaml:"ttl"`
	KeyPrefix     string        `yaml:"key_prefix"`
	PurgeSchedule string        `yaml:"purge_schedule"`
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	BurstSize         int           `yaml:"burst_size"`
	CodeRequests      int           `yaml:"code_requests"`
	Window            time.Duration `yaml:"window"`
}

// QuestsConfig holds daily quest settings
type QuestsConfig struct {
	DailyCount     int           `yaml:"daily_count"`
	AssignSchedule string        `yaml:"assign_schedule"`
	ActiveWindow   time.Duration `yaml:"active_window"`
}

// AccountsConfig holds registration settings
type AccountsConfig struct {
	UnverifiedGrace time.Duration `yaml:"unverified_grace"`
	PurgeSchedule   string        `yaml:"purge_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Auth: AuthConfig{
			IdentityCacheSize: 10000,
			IdentityCacheTTL:  30 * time.Second,
			DevTokenTTL:       12 * time.Hour,
		},
		Storage: storage.DefaultConfig(),
		Codes: CodesConfig{
			StoreType:     CodeStoreMemory,
			TTL:           5 * time.Minute,
			KeyPrefix:     "otp:",
			PurgeSchedule: "@every 1m",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 100,
			BurstSize:         10,
			CodeRequests:      5,
			Window:            time.Minute,
		},
		Quests: QuestsConfig{
			DailyCount:     3,
			AssignSchedule: "5 0 * * *",
			ActiveWindow:   7 * 24 * time.Hour,
		},
		Accounts: AccountsConfig{
			UnverifiedGrace: 5 * time.Minute,
			PurgeSchedule:   "@every 1m",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "panelhub",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by PANELHUB_CONFIG_FILE, and PANELHUB_* environment variables, in
// that order of precedence (environment wins).
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("PANELHUB_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path. Keys absent from the file keep their current value.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("PANELHUB_HOST", s.Host)
	s.Port = getEnv("PANELHUB_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("PANELHUB_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("PANELHUB_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("PANELHUB_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("PANELHUB_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("PANELHUB_MAX_BODY_BYTES", s.MaxBodyBytes)
	s.AllowedOrigins = getEnvList("PANELHUB_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.HealthPort = getEnv("PANELHUB_HEALTH_PORT", s.HealthPort)

	a := &c.Auth
	a.JWTSecret = getEnv("PANELHUB_JWT_SECRET", a.JWTSecret)
	a.JWTIssuer = getEnv("PANELHUB_JWT_ISSUER", a.JWTIssuer)
	a.IdentityCacheSize = getEnvInt("PANELHUB_IDENTITY_CACHE_SIZE", a.IdentityCacheSize)
	a.IdentityCacheTTL = getEnvDuration("PANELHUB_IDENTITY_CACHE_TTL", a.IdentityCacheTTL)
	a.DevTokenTTL = getEnvDuration("PANELHUB_DEV_TOKEN_TTL", a.DevTokenTTL)

	st := &c.Storage
	st.PostgresURL = getEnv("PANELHUB_POSTGRES_URL", st.PostgresURL)
	st.PostgresReplicaURLs = getEnv("PANELHUB_POSTGRES_REPLICA_URLS", st.PostgresReplicaURLs)
	st.PostgresMaxConns = getEnvInt("PANELHUB_POSTGRES_MAX_CONNS", st.PostgresMaxConns)
	st.PostgresMinConns = getEnvInt("PANELHUB_POSTGRES_MIN_CONNS", st.PostgresMinConns)
	st.PostgresTimeout = getEnvDuration("PANELHUB_POSTGRES_TIMEOUT", st.PostgresTimeout)
	st.RedisURL = getEnv("PANELHUB_REDIS_URL", st.RedisURL)
	st.RedisPassword = getEnv("PANELHUB_REDIS_PASSWORD", st.RedisPassword)
	st.RedisDB = getEnvInt("PANELHUB_REDIS_DB", st.RedisDB)
	st.RedisMaxRetries = getEnvInt("PANELHUB_REDIS_MAX_RETRIES", st.RedisMaxRetries)
	st.RedisPoolSize = getEnvInt("PANELHUB_REDIS_POOL_SIZE", st.RedisPoolSize)

	cd := &c.Codes
	cd.StoreType = strings.ToLower(getEnv("PANELHUB_CODE_STORE", cd.StoreType))
	cd.TTL = getEnvDuration("PANELHUB_CODE_TTL", cd.TTL)
	cd.KeyPrefix = getEnv("PANELHUB_CODE_KEY_PREFIX", cd.KeyPrefix)
	cd.PurgeSchedule = getEnv("PANELHUB_CODE_PURGE_SCHEDULE", cd.PurgeSchedule)

	rl := &c.RateLimit
	rl.Enabled = getEnvBool("PANELHUB_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.RequestsPerWindow = getEnvInt("PANELHUB_RATE_LIMIT_REQUESTS", rl.RequestsPerWindow)
	rl.BurstSize = getEnvInt("PANELHUB_RATE_LIMIT_BURST", rl.BurstSize)
	rl.CodeRequests = getEnvInt("PANELHUB_RATE_LIMIT_CODE_REQUESTS", rl.CodeRequests)
	rl.Window = getEnvDuration("PANELHUB_RATE_LIMIT_WINDOW", rl.Window)

	q := &c.Quests
	q.DailyCount = getEnvInt("PANELHUB_QUESTS_DAILY_COUNT", q.DailyCount)
	q.AssignSchedule = getEnv("PANELHUB_QUESTS_ASSIGN_SCHEDULE", q.AssignSchedule)
	q.ActiveWindow = getEnvDuration("PANELHUB_QUESTS_ACTIVE_WINDOW", q.ActiveWindow)

	ac := &c.Accounts
	ac.UnverifiedGrace = getEnvDuration("PANELHUB_UNVERIFIED_GRACE", ac.UnverifiedGrace)
	ac.PurgeSchedule = getEnv("PANELHUB_UNVERIFIED_PURGE_SCHEDULE", ac.PurgeSchedule)

	o := &c.Observability
	o.LogLevel = getEnv("PANELHUB_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("PANELHUB_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("PANELHUB_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("PANELHUB_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("PANELHUB_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("PANELHUB_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("PANELHUB_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Server.HealthPort == "" {
		return errors.New("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return errors.New("server port and health port must be different")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required")
	}
	if len(c.Auth.JWTSecret) < minSecretLength {
		return fmt.Errorf("JWT secret must be at least %d bytes", minSecretLength)
	}

	if c.Auth.IdentityCacheTTL <= 0 {
		return errors.New("identity cache TTL must be positive")
	}

	if c.Storage.PostgresURL == "" {
		return errors.New("postgres URL is required")
	}

	switch c.Codes.StoreType {
	case CodeStoreMemory:
	case CodeStoreRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("redis URL is required for the redis code store")
		}
	default:
		return fmt.Errorf("invalid code store type: %s (must be memory or redis)", c.Codes.StoreType)
	}
	if c.Codes.TTL <= 0 {
		return errors.New("code TTL must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.CodeRequests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate limit requests and window must be positive when enabled")
	}

	for name, spec := range map[string]string{
		"code purge":       c.Codes.PurgeSchedule,
		"quest assignment": c.Quests.AssignSchedule,
		"unverified purge": c.Accounts.PurgeSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return errors.New("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return errors.New("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
