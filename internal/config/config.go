// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mertz1999/ai-money-tracker/internal/common"
)

// EnvPrefix is the prefix for environment overrides, e.g. TRACKER_DATABASE_PATH.
const EnvPrefix = "TRACKER"

// Defaults.
const (
	DefaultLockTimeout = 5 * time.Second
	DefaultServerAddr  = "127.0.0.1:9000"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Server   ServerConfig
	Ledger   LedgerConfig
	Rate     RateConfig
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// LedgerConfig tunes the posting coordinator.
type LedgerConfig struct {
	LockTimeout time.Duration
}

// RateConfig holds the static exchange rate used when a command gets no --rate.
// A zero TomanPerUSD means no default rate is configured.
type RateConfig struct {
	TomanPerUSD decimal.Decimal
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr    string
	Metrics bool
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// EnvKeyReplacer maps nested keys to environment names: database.path becomes
// TRACKER_DATABASE_PATH.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_")
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("ledger.lock_timeout", DefaultLockTimeout)
	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.metrics", true)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// LoadEnvFile loads a .env file into the process environment before viper reads
// it. Variables already set win. An empty path tries ./.env and ignores a
// missing file.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load resolves a Config from v. It follows this precedence:
// 1. Explicit flags bound to v
// 2. Environment variables (TRACKER_*)
// 3. The config file
// 4. Defaults
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Ledger: LedgerConfig{
			LockTimeout: v.GetDuration("ledger.lock_timeout"),
		},
		Server: ServerConfig{
			Addr:    v.GetString("server.addr"),
			Metrics: v.GetBool("server.metrics"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if raw := v.GetString("rate.toman_per_usd"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: rate.toman_per_usd %q: %v", common.ErrInvalidConfig, raw, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("%w: rate.toman_per_usd must be positive, got %s", common.ErrInvalidConfig, rate)
		}
		cfg.Rate.TomanPerUSD = rate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Ledger.LockTimeout <= 0 {
		return fmt.Errorf("%w: ledger.lock_timeout must be positive, got %s", common.ErrInvalidConfig, c.Ledger.LockTimeout)
	}
	if c.Rate.TomanPerUSD.IsNegative() {
		return fmt.Errorf("%w: rate.toman_per_usd must be positive", common.ErrInvalidConfig)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// HasDefaultRate reports whether a static exchange rate is configured.
func (c *Config) HasDefaultRate() bool {
	return !c.Rate.TomanPerUSD.IsZero()
}

// EnsureDatabaseDir creates the directory holding the database file.
func (c *Config) EnsureDatabaseDir() error {
	if c.Database.Path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0o750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
