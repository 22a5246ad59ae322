package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesTimestampAndService(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	log.Info("location found", "position", "35.700000,51.400000")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Fatalf("record missing timestamp: %v", rec)
	}
	if _, ok := rec["time"]; ok {
		t.Fatalf("record still has time key: %v", rec)
	}
	if rec["service"] != "beacon" || rec["msg"] != "location found" {
		t.Fatalf("record = %v", rec)
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering failed: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFile_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "beacon", "beacon.log")

	log, closer, err := NewFile(path, "debug")
	if err != nil {
		t.Fatalf("NewFile returned error: %v", err)
	}
	log.Debug("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log file = %q", data)
	}
}

func TestOpenFile_EmptyPath(t *testing.T) {
	if _, err := OpenFile("  "); err == nil {
		t.Fatalf("OpenFile returned nil error for empty path")
	}
}
