package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("warn", &buf)

	Info("hidden")
	Warn("visible", "frame", 10)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Info line leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "frame=10") {
		t.Errorf("Expected warn line with attrs, got %q", out)
	}
}

func TestErrorPassesErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("error", &buf)

	Warn("quiet")
	Error("dashboard stopped with error", "error", "bind: address already in use")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("Warn line leaked through error level: %q", out)
	}
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "dashboard stopped with error") {
		t.Errorf("Expected error line, got %q", out)
	}
}
