package logging

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler("turnover", &buf, slog.LevelInfo))

	logger.Info("Feed synced", "property_id", "p1", "accepted", 4)

	line := buf.String()
	pattern := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z \[turnover\] INFO Feed synced property_id=p1 accepted=4\n$`)
	if !pattern.MatchString(line) {
		t.Errorf("unexpected log line: %q", line)
	}
}

func TestHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler("turnover", &buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("INFO record written at WARN level")
	}
	if !strings.Contains(buf.String(), "WARN shown") {
		t.Errorf("missing WARN record: %q", buf.String())
	}
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler("turnover", &buf, slog.LevelInfo)).
		With("feed_id", "f1").
		WithGroup("sync")

	logger.Info("done", "status", "partial failure")

	got := buf.String()
	if !strings.Contains(got, "feed_id=f1") {
		t.Errorf("missing precomputed attr: %q", got)
	}
	if !strings.Contains(got, `sync.status="partial failure"`) {
		t.Errorf("missing grouped quoted attr: %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
