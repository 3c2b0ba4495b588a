package console_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/internal/logging/console"
)

func TestConsoleLoggerWritesSortedFields(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
	})

	logger := logging.ModuleLogger(provider, "sections.render")
	ctx := logging.ContextWithFields(context.Background(), map[string]any{"tenant_id": "acme"})
	logger = logger.WithContext(ctx)

	logger.Warn("render.section.evaluation_failed", "section_type", "hero", "error", errors.New("bad tag"))

	got := strings.TrimSpace(buf.String())
	want := `2024-03-14T15:09:26Z WARN render.section.evaluation_failed error="bad tag" logger=sections.render module=sections.render section_type=hero tenant_id=acme`
	if got != want {
		t.Fatalf("unexpected entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	level := console.ParseLevel("info")
	provider := console.NewProvider(console.Options{Writer: &buf, MinLevel: &level})

	logger := provider.GetLogger("sections.test")
	logger.Debug("ignored")
	logger.Info("kept", "orphan")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "INFO kept") || !strings.Contains(lines[0], "extra=orphan") {
		t.Fatalf("unexpected line %q", lines[0])
	}
}
