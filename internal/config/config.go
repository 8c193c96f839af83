package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the runtime configuration of the socialhub client.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Session     SessionConfig     `mapstructure:"session"`
	Redis       RedisConfig       `mapstructure:"redis"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Watch       WatchConfig       `mapstructure:"watch"`

	DatabaseURL  string `mapstructure:"database_url"`
	MigrationDir string `mapstructure:"migration_dir" validate:"required"`
	LogLevel     string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat    string `mapstructure:"log_format" validate:"oneof=json text"`
}

// APIConfig describes the remote API.
type APIConfig struct {
	BaseURL     string          `mapstructure:"base_url" validate:"required,url"`
	Timeout     time.Duration   `mapstructure:"timeout" validate:"gt=0"`
	UserAgent   string          `mapstructure:"user_agent"`
	LoginPath   string          `mapstructure:"login_path" validate:"required"`
	SignupPath  string          `mapstructure:"signup_path" validate:"required"`
	RefreshPath string          `mapstructure:"refresh_path" validate:"required"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig paces outbound requests. Requests of 0 disables limiting.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests" validate:"gte=0"`
	Window   time.Duration `mapstructure:"window" validate:"gte=0"`
	Burst    int           `mapstructure:"burst" validate:"gte=0"`
}

// SessionConfig selects where the session snapshot is persisted.
type SessionConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=file memory redis postgres s3"`
	Path       string `mapstructure:"path"`
	Profile    string `mapstructure:"profile" validate:"required"`
	Passphrase string `mapstructure:"passphrase"`
}

// RedisConfig configures the redis session backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// ObjectStoreConfig configures the S3 session backend.
type ObjectStoreConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

// WatchConfig controls background revalidation.
type WatchConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	Workers     int           `mapstructure:"workers" validate:"gt=0"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gt=0"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// EnvPrefix is the prefix of environment overrides, e.g. SOCIALHUB_API_BASE_URL.
const EnvPrefix = "SOCIALHUB"

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("api.base_url", "http://127.0.0.1:8000/api/")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.user_agent", "socialhub-client")
	v.SetDefault("api.login_path", "/users/login/")
	v.SetDefault("api.signup_path", "/users/signup/")
	v.SetDefault("api.refresh_path", "/token/refresh/")
	v.SetDefault("api.rate_limit.requests", 0)
	v.SetDefault("api.rate_limit.window", time.Second)
	v.SetDefault("api.rate_limit.burst", 5)

	v.SetDefault("session.backend", "file")
	v.SetDefault("session.path", filepath.Join(home, ".socialhub", "session.json"))
	v.SetDefault("session.profile", "default")
	v.SetDefault("session.passphrase", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 0)

	v.SetDefault("object_store.bucket", "")
	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.endpoint", "")
	v.SetDefault("object_store.prefix", "sessions")

	v.SetDefault("watch.interval", 30*time.Second)
	v.SetDefault("watch.workers", 2)
	v.SetDefault("watch.queue_size", 16)
	v.SetDefault("watch.metrics_addr", "")

	v.SetDefault("database_url", "")
	v.SetDefault("migration_dir", "migrations")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
}

// Load reads configuration from the optional YAML file at path, applies
// SOCIALHUB_* environment overrides and defaults, and validates the result.
// When path is empty socialhub.yaml is looked up in the working directory and
// in ~/.socialhub.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".socialhub"))
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			candidate := filepath.Join(dir, "socialhub"+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
