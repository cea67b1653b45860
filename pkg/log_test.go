package pkg

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)

	logger.Info().Msg("test message")
	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("log output missing message: %s", buf.String())
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	logger.Info().Msg("test message")
	output := buf.String()
	if !strings.Contains(output, `"message":"test message"`) {
		t.Errorf("JSON log output missing message: %s", output)
	}
}

func withLogger(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalLogger := DefaultLogger
	originalLevel := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(originalLogger)
		SetLogLevel(originalLevel)
	})
	SetLogger(NewLogger(&buf))
	SetLogLevel(level)
	return &buf
}

func TestLogDebug(t *testing.T) {
	buf := withLogger(t, zerolog.DebugLevel)

	LogDebug(ComponentRelay, "debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("debug log missing message: %s", output)
	}
	if !strings.Contains(output, "component=relay") {
		t.Errorf("debug log missing component: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("debug log missing field: %s", output)
	}
}

func TestLogDebugFiltered(t *testing.T) {
	buf := withLogger(t, zerolog.InfoLevel)

	LogDebug(ComponentCodec, "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug log emitted at info level: %s", buf.String())
	}
}

func TestLogInfo(t *testing.T) {
	buf := withLogger(t, zerolog.InfoLevel)

	LogInfo(ComponentConn, "info message")
	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("info log missing message: %s", output)
	}
	if !strings.Contains(output, "component=conn") {
		t.Errorf("info log missing component: %s", output)
	}
}

func TestLogWarn(t *testing.T) {
	buf := withLogger(t, zerolog.InfoLevel)

	LogWarn(ComponentUSB, "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("warn log missing message: %s", buf.String())
	}
}

func TestLogError(t *testing.T) {
	buf := withLogger(t, zerolog.InfoLevel)

	LogError(ComponentWiFi, "error message", "error", errors.New("boom"))
	output := buf.String()
	if !strings.Contains(output, "error message") {
		t.Errorf("error log missing message: %s", output)
	}
	if !strings.Contains(output, "boom") {
		t.Errorf("error log missing error value: %s", output)
	}
}
