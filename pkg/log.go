package pkg

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Component identifies a subsystem for log filtering.
type Component string

// Bridge component identifiers.
const (
	ComponentBridge Component = "bridge"
	ComponentRelay  Component = "relay"
	ComponentCodec  Component = "codec"
	ComponentConn   Component = "conn"
	ComponentUSB    Component = "usb"
	ComponentWiFi   Component = "wifi"
	ComponentHost   Component = "host"
	ComponentCred   Component = "cred"
)

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Console format (default)
	LogFormatJSON                  // JSON format
)

var (
	// DefaultLogger is the logger used by the package-level helpers.
	DefaultLogger zerolog.Logger

	// logLevel controls the minimum log level.
	logLevel = zerolog.WarnLevel

	// logMutex protects logger configuration.
	logMutex sync.RWMutex
)

func init() {
	DefaultLogger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// SetLogLevel sets the minimum log level for all bridge logging.
func SetLogLevel(level zerolog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel = level
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() zerolog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel
}

// ParseLogLevel converts a level name ("debug", "info", ...) to a zerolog level.
// Unknown or empty names yield the fallback.
func ParseLogLevel(name string, fallback zerolog.Level) zerolog.Level {
	if name == "" {
		return fallback
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return fallback
	}
	return lvl
}

// SetLogger replaces the default logger with a custom logger.
func SetLogger(logger zerolog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat configures the default logger to use the specified format.
// The logger writes to os.Stderr.
func SetLogFormat(format LogFormat) {
	logMutex.Lock()
	defer logMutex.Unlock()
	switch format {
	case LogFormatJSON:
		DefaultLogger = NewJSONLogger(os.Stderr)
	default:
		DefaultLogger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// NewLogger creates a console logger without colors writing to w.
func NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logAt(zerolog.DebugLevel, component, msg, args)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logAt(zerolog.InfoLevel, component, msg, args)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logAt(zerolog.WarnLevel, component, msg, args)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logAt(zerolog.ErrorLevel, component, msg, args)
}

func logAt(level zerolog.Level, component Component, msg string, args []any) {
	logMutex.RLock()
	logger := DefaultLogger
	min := logLevel
	logMutex.RUnlock()
	if level < min {
		return
	}
	ev := logger.WithLevel(level).Str("component", string(component))
	if len(args) > 0 {
		ev = ev.Fields(args)
	}
	ev.Msg(msg)
}
