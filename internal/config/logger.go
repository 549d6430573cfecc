package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the root logger. Every entry carries the service name and
// the deployment environment.
func NewLogger(cfg LoggerConfig, env string) zerolog.Logger {
	return newLogger(cfg, env, os.Stdout)
}

func newLogger(cfg LoggerConfig, env string, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	service := cfg.Service
	if service == "" {
		service = DefaultServiceName
	}

	return zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Str("env", env).
		Logger()
}
