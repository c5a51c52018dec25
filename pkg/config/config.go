package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/auth/cache"
)

// keyringService is the service name entries are stored under in the OS
// keyring.
const keyringService = "dsvgo"

// Config holds all configuration.
type Config struct {
	// Account is the SU account used against the identity provider.
	Account AccountConfig

	// Cache selects and configures the session cache backend.
	Cache CacheConfig

	// Flow tunes the login flow.
	Flow FlowConfig

	// Observability holds logging and metrics settings.
	Observability ObservabilityConfig

	// Mail holds the student mailbox endpoints.
	Mail MailConfig
}

// AccountConfig holds credentials. Password resolution order: the
// DSV_PASSWORD variable, then the OS keyring entry for the username.
type AccountConfig struct {
	Username string
	Password string
}

// CacheConfig selects the session cache backend.
type CacheConfig struct {
	// Backend is one of "null", "memory", "file", "redis", "sqlite".
	Backend string
	// Dir is the directory for the file backend.
	Dir string
	// RedisURL is the redis:// URL for the redis backend.
	RedisURL string
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string
	// TTL is stamped on new cache entries.
	TTL time.Duration
	// MaxEntries bounds the memory backend.
	MaxEntries int
}

// FlowConfig tunes the login flow.
type FlowConfig struct {
	HopTimeout time.Duration
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
	OTelEnabled    bool
}

// MailConfig holds the student mailbox endpoints.
type MailConfig struct {
	IMAPAddr string
	SMTPHost string
	SMTPPort int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Account: AccountConfig{
			Username: getEnv("DSV_USERNAME", ""),
			Password: getEnv("DSV_PASSWORD", ""),
		},
		Cache: CacheConfig{
			Backend:    getEnv("DSV_CACHE_BACKEND", "file"),
			Dir:        getEnv("DSV_CACHE_DIR", defaultCacheDir()),
			RedisURL:   getEnv("DSV_REDIS_URL", ""),
			SQLitePath: getEnv("DSV_SQLITE_PATH", ""),
			TTL:        getEnvDuration("DSV_SESSION_TTL", 24*time.Hour),
			MaxEntries: getEnvInt("DSV_CACHE_MAX_ENTRIES", 128),
		},
		Flow: FlowConfig{
			HopTimeout: getEnvDuration("DSV_HOP_TIMEOUT", 60*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("DSV_LOG_LEVEL", "info"),
			MetricsEnabled: getEnvBool("DSV_METRICS_ENABLED", false),
			OTelEnabled:    getEnvBool("DSV_OTEL_ENABLED", false),
		},
		Mail: MailConfig{
			IMAPAddr: getEnv("DSV_IMAP_ADDR", "ebox.su.se:993"),
			SMTPHost: getEnv("DSV_SMTP_HOST", "ebox.su.se"),
			SMTPPort: getEnvInt("DSV_SMTP_PORT", 587),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "null", "memory":
	case "file":
		if c.Cache.Dir == "" {
			return fmt.Errorf("cache dir is required for the file backend")
		}
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis backend")
		}
	case "sqlite":
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("invalid cache backend: %s (must be null, memory, file, redis, or sqlite)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	return nil
}

// Credentials resolves the account credentials. A password from the
// environment wins; otherwise the OS keyring is consulted for the username.
func (c *Config) Credentials() (auth.Credentials, error) {
	if c.Account.Username == "" {
		return auth.Credentials{}, fmt.Errorf("no username configured (set DSV_USERNAME)")
	}
	if c.Account.Password != "" {
		return auth.Credentials{Username: c.Account.Username, Password: c.Account.Password}, nil
	}
	password, err := keyring.Get(keyringService, c.Account.Username)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("no password in DSV_PASSWORD or keyring for %s: %w", c.Account.Username, err)
	}
	return auth.Credentials{Username: c.Account.Username, Password: password}, nil
}

// StorePassword saves a password for the username in the OS keyring.
func StorePassword(username, password string) error {
	return keyring.Set(keyringService, username, password)
}

// DeletePassword removes the keyring entry for the username.
func DeletePassword(username string) error {
	return keyring.Delete(keyringService, username)
}

// NewCacheBackend constructs the configured session cache backend.
func NewCacheBackend(ctx context.Context, cfg CacheConfig) (auth.CacheBackend, error) {
	switch cfg.Backend {
	case "null":
		return cache.NewNull(), nil
	case "memory":
		return cache.NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "file":
		return cache.NewFile(cfg.Dir)
	case "redis":
		return cache.NewRedis(ctx, cfg.RedisURL, cfg.TTL)
	case "sqlite":
		return cache.NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("invalid cache backend: %s", cfg.Backend)
	}
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + string(os.PathSeparator) + "dsvgo"
	}
	return ".dsvgo-cache"
}

// getEnv returns an environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
