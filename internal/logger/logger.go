package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	mu sync.RWMutex
)

func init() {
	// Info level, JSON to stderr until Init is called from the CLI.
	Logger = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// ParseLevel maps a config string to a zerolog level. Unknown values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level is one of the accepted config values.
func ValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Init configures the global logger. Pretty output goes through zerolog's
// console writer; otherwise lines are JSON.
func Init(level string, pretty bool) {
	InitWithWriter(os.Stderr, level, pretty)
}

// InitWithWriter is Init with an explicit destination.
func InitWithWriter(out io.Writer, level string, pretty bool) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	l := zerolog.New(out).
		With().
		Timestamp().
		Logger()

	mu.Lock()
	Logger = l
	mu.Unlock()

	log.Logger = l
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := Logger
	return &l
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	mu.RLock()
	l := Logger.With().Str("component", component).Logger()
	mu.RUnlock()
	return &l
}
