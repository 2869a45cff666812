package pkg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// captureLog routes the default logger to a buffer for the rest of the test.
func captureLog(t *testing.T, json bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLogger, prevLevel := DefaultLogger, GetLogLevel()
	t.Cleanup(func() {
		SetLogger(prevLogger)
		SetLogLevel(prevLevel)
	})
	if json {
		SetLogger(NewJSONLogger(&buf, nil))
	} else {
		SetLogger(NewLogger(&buf, nil))
	}
	return &buf
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		log       func(Component, string, ...any)
		component Component
		shown     bool // at the default warn level
	}{
		{"debug", LogDebug, ComponentBus, false},
		{"info", LogInfo, ComponentHost, false},
		{"warn", LogWarn, ComponentBatch, true},
		{"error", LogError, ComponentDispatch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t, false)
			SetLogLevel(slog.LevelWarn)
			tt.log(tt.component, "at warn")
			if got := strings.Contains(buf.String(), "at warn"); got != tt.shown {
				t.Errorf("logged at warn level = %t, want %t: %s", got, tt.shown, buf)
			}

			buf.Reset()
			SetLogLevel(slog.LevelDebug)
			tt.log(tt.component, "at debug", "controller", 1)
			out := buf.String()
			for _, want := range []string{"at debug", "component=" + string(tt.component), "controller=1"} {
				if !strings.Contains(out, want) {
					t.Errorf("log output missing %q: %s", want, out)
				}
			}
		})
	}
}

func TestLogJSON(t *testing.T) {
	buf := captureLog(t, true)

	LogWarn(ComponentBatch, "flush failed", "bytes", 3)
	out := buf.String()
	for _, want := range []string{`"msg":"flush failed"`, `"component":"batch"`, `"bytes":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON log missing %s: %s", want, out)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelWarn,
		"verbose": slog.LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := map[string]LogFormat{
		"JSON":   LogFormatJSON,
		" json ": LogFormatJSON,
		"text":   LogFormatText,
		"":       LogFormatText,
	}
	for in, want := range tests {
		if got := ParseLogFormat(in); got != want {
			t.Errorf("ParseLogFormat(%q) = %v, want %v", in, got, want)
		}
	}
}
