// Package config loads skilltrace settings from defaults, an optional YAML
// file, SKILLTRACE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	// Zone data for hosts without a system tz database.
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/abhisek/skilltrace/internal/exam"
	"github.com/abhisek/skilltrace/internal/llm"
	"github.com/abhisek/skilltrace/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. SKILLTRACE_DATABASE_DSN.
const EnvPrefix = "SKILLTRACE"

// Cache drivers.
const (
	CacheSQL   = "sql"
	CacheRedis = "redis"
	CacheNone  = "none"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Mastery  MasteryConfig  `mapstructure:"mastery"`
	Exam     ExamConfig     `mapstructure:"exam"`
	Server   ServerConfig   `mapstructure:"server"`
	LLM      llm.Config     `mapstructure:"llm"`
	Insights InsightsConfig `mapstructure:"insights"`

	// Timezone is the IANA zone used for day buckets and streaks.
	Timezone string `mapstructure:"timezone"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// DatabaseConfig selects the attempt log backend. An empty SQLite DSN
// resolves to the per-user data directory.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ContentConfig points at the curriculum documents.
type ContentConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig selects where mastery snapshots are memoized.
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	URL    string        `mapstructure:"url"`
	TTL    time.Duration `mapstructure:"ttl"`
	// Keep is the number of SQL snapshots retained per learner.
	Keep int `mapstructure:"keep"`
}

// MasteryConfig tunes the aggregator.
type MasteryConfig struct {
	MinAttempts    int `mapstructure:"min_attempts"`
	ReconcileEvery int `mapstructure:"reconcile_every"`
}

// ExamConfig holds exam generation defaults.
type ExamConfig struct {
	Strategy     string `mapstructure:"strategy"`
	DefaultCount int    `mapstructure:"default_count"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// InsightsConfig tunes narrative generation.
type InsightsConfig struct {
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"db":        "database.dsn",
	"db-driver": "database.driver",
	"content":   "content.dir",
	"log-level": "log.level",
	"addr":      "server.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", store.DriverSQLite)
	v.SetDefault("database.dsn", "")

	v.SetDefault("content.dir", "content")

	v.SetDefault("cache.driver", CacheSQL)
	v.SetDefault("cache.url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.keep", 3)

	v.SetDefault("mastery.min_attempts", 3)
	v.SetDefault("mastery.reconcile_every", 50)

	v.SetDefault("exam.strategy", string(exam.StrategyShuffle))
	v.SetDefault("exam.default_count", 10)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	llmDefaults := llm.DefaultConfig()
	v.SetDefault("llm.provider", llmDefaults.Provider)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", llmDefaults.Timeout)
	v.SetDefault("llm.retry.max_attempts", llmDefaults.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", llmDefaults.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", llmDefaults.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", llmDefaults.Retry.Multiplier)

	v.SetDefault("insights.max_tokens", 400)
	v.SetDefault("insights.temperature", 0.4)
	v.SetDefault("insights.timeout", "20s")

	v.SetDefault("timezone", "Local")
}

// Load builds the configuration. path names an explicit config file; when
// empty, skilltrace.yaml is looked up in the working directory and the
// user config directory and skipped if absent. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("skilltrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/skilltrace")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM = cfg.LLM.Resolve(os.Getenv)

	if cfg.Database.Driver == store.DriverSQLite && cfg.Database.DSN == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.Database.DSN = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q",
			store.DriverSQLite, store.DriverPostgres, c.Database.Driver))
	}
	if c.Database.Driver == store.DriverPostgres && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required for postgres"))
	}
	switch c.Cache.Driver {
	case CacheSQL, CacheNone:
	case CacheRedis:
		if c.Cache.URL == "" {
			errs = append(errs, errors.New("cache.url is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver must be sql, redis or none, got %q", c.Cache.Driver))
	}
	if c.Mastery.MinAttempts < 1 {
		errs = append(errs, fmt.Errorf("mastery.min_attempts must be at least 1, got %d", c.Mastery.MinAttempts))
	}
	if _, err := exam.ParseStrategy(c.Exam.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("exam.strategy: %w", err))
	}
	if c.Exam.DefaultCount < 1 {
		errs = append(errs, fmt.Errorf("exam.default_count must be positive, got %d", c.Exam.DefaultCount))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
