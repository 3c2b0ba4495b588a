package runtimeconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-sections/internal/runtimeconfig"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := runtimeconfig.DefaultConfig().Validate(); err != nil {
		t.Fatalf("Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_RejectsUnknownDriver(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "mongo"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDriverUnknown) {
		t.Fatalf("expected ErrStorageDriverUnknown, got %v", err)
	}
}

func TestConfigValidate_RequiresDSNForDatabaseDrivers(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Driver = "SQLite3"

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrStorageDSNRequired) {
		t.Fatalf("expected ErrStorageDSNRequired, got %v", err)
	}
}

func TestConfigValidate_CacheNeedsDatabase(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Cache.Enabled = true

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrCacheRequiresDatabase) {
		t.Fatalf("expected ErrCacheRequiresDatabase, got %v", err)
	}
}

func TestConfigValidate_WatchNeedsDir(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Snippets.Watch = true

	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrSnippetWatchRequiresDir) {
		t.Fatalf("expected ErrSnippetWatchRequiresDir, got %v", err)
	}

	cfg.Snippets.Watch = false
	cfg.Snippets.Resync = "@every 5m"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrSnippetResyncRequiresDir) {
		t.Fatalf("expected ErrSnippetResyncRequiresDir, got %v", err)
	}
}

func TestConfigValidate_RejectsLoggingValues(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "syslog"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingProviderUnknown) {
		t.Fatalf("expected ErrLoggingProviderUnknown, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingLevelInvalid) {
		t.Fatalf("expected ErrLoggingLevelInvalid, got %v", err)
	}

	cfg = runtimeconfig.DefaultConfig()
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); !errors.Is(err, runtimeconfig.ErrLoggingFormatInvalid) {
		t.Fatalf("expected ErrLoggingFormatInvalid, got %v", err)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.toml")
	body := `
[render]
section_timeout = "500ms"
default_currency = "EUR"

[storage]
driver = "sqlite3"
dsn = "file::memory:?cache=shared"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := runtimeconfig.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Render.SectionTimeout != 500*time.Millisecond {
		t.Fatalf("expected 500ms timeout, got %s", cfg.Render.SectionTimeout)
	}
	if cfg.Render.DefaultCurrency != "EUR" {
		t.Fatalf("expected EUR, got %q", cfg.Render.DefaultCurrency)
	}
	if cfg.Render.PageConcurrency != 8 {
		t.Fatalf("expected default page concurrency to survive, got %d", cfg.Render.PageConcurrency)
	}
	if cfg.Storage.Driver != "sqlite3" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected storage/logging %+v %+v", cfg.Storage, cfg.Logging)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sections.toml")
	if err := os.WriteFile(path, []byte("[render]\nturbo = true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := runtimeconfig.LoadFile(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}
