package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandlerFormats(t *testing.T) {
	for _, format := range []string{"", FormatText, FormatJSON, FormatPretty, "JSON"} {
		if _, err := NewHandler(format, slog.LevelInfo, &bytes.Buffer{}); err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
	}
	if _, err := NewHandler("xml", slog.LevelInfo, nil); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v (err=%v)", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoggerAddsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf}).WithComponent(ComponentBudget)
	l.Info("fetched", FieldCount, 3)

	line := strings.TrimSpace(buf.String())
	if strings.Count(line, `"component"`) != 1 {
		t.Fatalf("expected a single component field: %s", line)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["component"] != ComponentBudget || rec["count"] != float64(3) {
		t.Fatalf("unexpected record: %v", rec)
	}
}
