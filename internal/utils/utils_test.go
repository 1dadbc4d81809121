package utils

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("outer: %w", NewAppError("store.Create", "insert failed", base))
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error")
	}
	if OpOf(err) != "store.Create" {
		t.Fatalf("unexpected op %q", OpOf(err))
	}
	if OpOf(base) != "" {
		t.Fatalf("plain errors carry no op")
	}
}

func TestRFC3339RoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 30, 0, 123000000, time.FixedZone("CAT", 2*3600))
	parsed, err := ParseRFC3339(FormatRFC3339(at))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(at) || parsed.Location() != time.UTC {
		t.Fatalf("unexpected parsed time %v", parsed)
	}
	if _, err := ParseRFC3339(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseRFC3339("yesterday"); err == nil {
		t.Fatalf("expected error for malformed value")
	}
}

func TestHoursBetween(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := HoursBetween(start, start.Add(90*time.Minute)); got != 1.5 {
		t.Fatalf("expected 1.5h, got %v", got)
	}
	if got := HoursBetween(start.Add(time.Hour), start); got != -1 {
		t.Fatalf("expected -1h, got %v", got)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "WARN", true)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("worker_id", "w-1"))
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"worker_id":"w-1"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if ParseLevel("verbose") != slog.LevelInfo {
		t.Fatalf("unknown levels should default to info")
	}
}
