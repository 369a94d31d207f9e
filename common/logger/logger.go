package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Package logger wraps zerolog behind the small formatted API the rest of
// the codebase uses. Components do not hold a logger; they call the
// package-level functions so tests can silence or capture output.

var (
	mu  sync.RWMutex
	log = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Setup replaces the package logger. level accepts the usual zerolog
// names ("debug", "info", ...); unknown values fall back to info.
func Setup(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	mu.Lock()
	log = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	mu.Unlock()
}

// L returns the current package logger for structured call sites.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { l := L(); l.Debug().Msgf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { l := L(); l.Info().Msgf(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) { l := L(); l.Warn().Msgf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { l := L(); l.Error().Msgf(format, args...) }

// Disable silences all logging (useful in tests).
func Disable() {
	mu.Lock()
	log = zerolog.Nop()
	mu.Unlock()
}
