// Package logging builds the scanner's structured logger. Grounded on
// serviceradar's zerolog-based logging injection: a logger is built once
// in cmd/portscan and handed to internal/engine, which takes it as a
// zerolog.Logger and imports zerolog itself. The banner and service
// packages do no logging.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the minimal leveled-logging surface zerolog.Logger provides,
// which it satisfies directly. No package in this module takes a Logger;
// the engine's Options use zerolog.Logger.
type Logger interface {
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
}

// Config selects level and output format.
type Config struct {
	Level  string // "debug" | "info" | "warn" | "error"
	Pretty bool
	Output io.Writer
}

// New builds a zerolog.Logger per Config. An unknown level falls back to
// info rather than erroring — logging configuration should never be
// fatal to a scan.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, for tests and for
// library callers who don't want scan logging.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
