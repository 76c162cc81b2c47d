package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration
type Config struct {
	Level       string `yaml:"level" json:"level"`
	Pretty      bool   `yaml:"pretty" json:"pretty"`
	TimeFormat  string `yaml:"time_format" json:"time_format"`
	EnableFile  bool   `yaml:"enable_file" json:"enable_file"`
	LogDir      string `yaml:"log_dir" json:"log_dir"`
	LogFileName string `yaml:"log_file" json:"log_file"`
	MaxSizeMB   int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days" json:"max_age_days"`
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Pretty:      true,
		TimeFormat:  time.RFC3339,
		EnableFile:  false,
		LogDir:      "logs",
		LogFileName: "basketback.log",
		MaxSizeMB:   50,
		MaxBackups:  5,
		MaxAgeDays:  14,
	}
}

// Initialize sets up the global logger with the given configuration
func Initialize(config Config) {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = config.TimeFormat

	var writers []io.Writer
	if config.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		writers = append(writers, os.Stderr)
	}

	if config.EnableFile {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(config.LogDir, config.LogFileName),
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
		})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

// GetLogger returns a logger with the specified component name
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// GetSubLogger returns a logger with additional context
func GetSubLogger(parent zerolog.Logger, subComponent string) zerolog.Logger {
	return parent.With().Str("subcomponent", subComponent).Logger()
}
