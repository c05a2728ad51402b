package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestAutoFormatIsJSONOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "auto", "info")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("player created", "player", "Nova")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected a JSON line got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "player created" || rec["player"] != "Nova" {
		t.Fatalf("expected message and attribute got %v", rec)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "text", "debug")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("task started", "task", "energy-regen")
	if !strings.Contains(buf.String(), "task=energy-regen") {
		t.Fatalf("expected key=value output got %q", buf.String())
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, "json", "warn")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info suppressed at warn got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q): expected %v got %v (%v)", in, want, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level rejected")
	}
	if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatalf("expected unknown format rejected")
	}
}
