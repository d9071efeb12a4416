package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"freeshare/internal/config"
)

// newLogger writes JSON in production and colored console output elsewhere.
func newLogger(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	if !cfg.Production() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
