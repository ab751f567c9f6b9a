package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "debug text", cfg: Config{Level: "debug", Format: "text"}},
		{name: "uppercase", cfg: Config{Level: "WARN", Format: "CONSOLE"}},
		{name: "bad level", cfg: Config{Level: "verbose"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Slog().Debug("hidden")
	logger.Component("compose").Info("composition succeeded", "layers", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", lines[0], err)
	}
	if entry["msg"] != "composition succeeded" || entry["component"] != "compose" {
		t.Errorf("entry = %v", entry)
	}
	if entry["layers"] != float64(3) {
		t.Errorf("layers = %v, want 3", entry["layers"])
	}
}

func TestLoggerConsoleDropsTime(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Slog().Warn("reload failed", "diagnostics", 2)

	out := buf.String()
	if strings.Contains(out, "time=") {
		t.Errorf("console output has a timestamp: %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "diagnostics=2") {
		t.Errorf("console output = %q", out)
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithReloadID(context.Background(), "r-1")
	ctx = WithStack(ctx, "cascade.yaml")
	Scoped(ctx, logger.Component("source")).Info("stack reloaded")

	out := buf.String()
	for _, want := range []string{"component=source", "reload_id=r-1", "stack=cascade.yaml"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}

	if got := ContextFields(context.Background()); len(got) != 0 {
		t.Errorf("ContextFields(empty) = %v", got)
	}
	base := logger.Slog()
	if got := Scoped(context.Background(), base); got != base {
		t.Error("Scoped(empty) returned a new logger")
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, _ := ParseLevel(""); lvl != slog.LevelInfo {
		t.Errorf("ParseLevel(\"\") = %v, want info", lvl)
	}
	if lvl, _ := ParseLevel("warning"); lvl != slog.LevelWarn {
		t.Errorf("ParseLevel(warning) = %v, want warn", lvl)
	}
}
