// Package config loads territory-cli settings from config.yaml and
// TERRITORY_* environment variables.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Redis    RedisConfig    `yaml:"redis" mapstructure:"redis"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the assignment store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite or memory
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RedisConfig configures the optional assignment snapshot cache. An empty
// URL disables it.
type RedisConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Key     string `yaml:"key" mapstructure:"key"`
	TTLSecs int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
}

// ResolverConfig configures the resolution service.
type ResolverConfig struct {
	FallbackInstallerID string      `yaml:"fallback_installer_id" mapstructure:"fallback_installer_id"`
	BatchConcurrency    int         `yaml:"batch_concurrency" mapstructure:"batch_concurrency"`
	Retry               RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures retries of transient store failures.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit           float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // resolve requests/sec, 0 = unlimited
	RateBurst           int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TERRITORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "territory.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key", "territory:assignments:snapshot")
	v.SetDefault("redis.ttl_secs", 300)
	v.SetDefault("resolver.fallback_installer_id", "")
	v.SetDefault("resolver.batch_concurrency", 8)
	v.SetDefault("resolver.retry.max_attempts", 3)
	v.SetDefault("resolver.retry.initial_backoff_ms", 50)
	v.SetDefault("resolver.retry.max_backoff_ms", 2000)
	v.SetDefault("resolver.retry.multiplier", 2.0)
	v.SetDefault("resolver.retry.jitter_fraction", 0.2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "serve", "resolve", "admin" and "migrate". All problems are reported
// together.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(p string) { problems = append(problems, p) }

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			add("store.sqlite_path is required for the sqlite driver")
		}
	case "memory":
	default:
		add("store.driver must be one of postgres, sqlite, memory")
	}
	if c.Redis.TTLSecs < 0 {
		add("redis.ttl_secs must not be negative")
	}

	switch mode {
	case "serve", "resolve":
		if c.Resolver.FallbackInstallerID == "" {
			add("resolver.fallback_installer_id is required")
		}
		if c.Resolver.BatchConcurrency < 1 {
			add("resolver.batch_concurrency must be at least 1")
		}
		if mode == "serve" {
			if c.Server.Port < 1 || c.Server.Port > 65535 {
				add("server.port must be between 1 and 65535")
			}
			if c.Server.RateLimit < 0 {
				add("server.rate_limit must not be negative")
			}
		}
	case "admin", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
