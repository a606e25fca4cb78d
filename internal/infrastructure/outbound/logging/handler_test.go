package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/sophialabs/labelcheck/internal/infrastructure/outbound/logging"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewHandler_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewHandler(&buf, logging.HandlerOptions{
		Level:   slog.LevelInfo,
		Console: true,
		NoColor: true,
	}))

	logger.Debug("hidden")
	logger.Info("label verified", "label", "phone")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "label verified") || !strings.Contains(out, "label=phone") {
		t.Errorf("unexpected console output: %s", out)
	}
}

func TestNewHandler_FileFanout(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(logging.NewHandler(&console, logging.HandlerOptions{
		Level: slog.LevelDebug,
		File:  &file,
	})).With("run", "r1")

	logger.Warn("retrying", "attempt", 2)

	if !strings.Contains(console.String(), "retrying") {
		t.Errorf("console missing record: %s", console.String())
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec); err != nil {
		t.Fatalf("file output is not JSON: %v (%s)", err, file.String())
	}
	if rec["msg"] != "retrying" || rec["run"] != "r1" {
		t.Errorf("unexpected file record: %v", rec)
	}
}
