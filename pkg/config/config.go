package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/minjpark/basketback/pkg/backtester"
	"github.com/minjpark/basketback/pkg/logging"
)

// Database holds the connection parameters for the historical bar store.
type Database struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432" validate:"gt=0"`
	User     string `yaml:"user" default:"postgres"`
	Password string `yaml:"password"`
	Name     string `yaml:"name" default:"market_data"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// ConnString returns the lib/pq connection string.
func (d Database) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Storage holds paths for result persistence.
type Storage struct {
	ResultsDB string `yaml:"results_db" default:"basketback.db"`
}

// Config is the top-level configuration for a basket run.
type Config struct {
	Symbols    []string          `yaml:"symbols"`
	Timeframe  string            `yaml:"timeframe" default:"1d"`
	Strategy   string            `yaml:"strategy" default:"sma_cross"`
	Start      string            `yaml:"start"`
	End        string            `yaml:"end"`
	MaxWorkers int               `yaml:"max_workers" validate:"gte=0"`
	Backtest   backtester.Config `yaml:"backtest"`
	Database   Database          `yaml:"database"`
	Storage    Storage           `yaml:"storage"`
	Logging    logging.Config    `yaml:"logging"`
}

// Load reads the YAML configuration at path (path may be empty for pure
// defaults), fills in defaults, applies environment overrides for database
// credentials, and validates the result. A configuration that turns off
// next-open execution is rejected here rather than at run time.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Backtest: backtester.DefaultConfig(),
		Logging:  logging.DefaultConfig(),
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Backtest.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DateRange parses the configured start/end dates. The end date is extended
// by a day so bars on the end date itself are included.
func (c *Config) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", c.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", c.Start, err)
	}
	end, err := time.Parse("2006-01-02", c.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", c.End, err)
	}
	end = end.Add(24 * time.Hour)
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s not after start date %s", c.End, c.Start)
	}
	return start, end, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Database.Name = v
	}
}
