package pwlog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelDebug, &buf)

	log.Info("submitting workflow", "name", "train", "run", 7)

	got := buf.String()
	if strings.HasPrefix(got, "info") {
		t.Errorf("info lines should have no level tag, got %q", got)
	}
	if !strings.Contains(got, "submitting workflow") {
		t.Errorf("output = %q, message missing", got)
	}
	if !strings.Contains(got, "name=train") || !strings.Contains(got, "run=7") {
		t.Errorf("output = %q, attrs should render as key=value", got)
	}
}

func TestHandler_LevelTags(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelDebug, &buf)

	log.Debug("one")
	log.Warn("two")
	log.Error("three")

	got := buf.String()
	for _, want := range []string{"debug: one", "warning: two", "error: three"} {
		if !strings.Contains(got, want) {
			t.Errorf("output = %q, want %q", got, want)
		}
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(slog.LevelWarn, &buf)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("output = %q, lines below the level should be dropped", got)
	}
	if !strings.Contains(got, "visible") {
		t.Errorf("output = %q, warn should pass", got)
	}
}
