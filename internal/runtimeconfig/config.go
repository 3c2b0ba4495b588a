package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrRenderTimeoutInvalid = errors.New("sections config: render section timeout must be zero or positive")
var ErrPageConcurrencyInvalid = errors.New("sections config: page concurrency must be zero or positive")
var ErrStorageDriverUnknown = errors.New("sections config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("sections config: storage dsn is required for database drivers")
var ErrCacheRequiresDatabase = errors.New("sections config: cache requires a database storage driver")
var ErrSnippetWatchRequiresDir = errors.New("sections config: snippet watch requires a snippet directory")
var ErrSnippetResyncRequiresDir = errors.New("sections config: snippet resync requires a snippet directory")
var ErrLoggingProviderUnknown = errors.New("sections config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("sections config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("sections config: logging format is invalid")

// Storage drivers understood by the storage opener.
const (
	DriverMemory   = "memory"
	DriverSQLite3  = "sqlite3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates the runtime settings of the sections module.
type Config struct {
	Render     RenderConfig     `toml:"render"`
	Storage    StorageConfig    `toml:"storage"`
	Cache      CacheConfig      `toml:"cache"`
	Snippets   SnippetsConfig   `toml:"snippets"`
	Validation ValidationConfig `toml:"validation"`
	Logging    LoggingConfig    `toml:"logging"`
	HTTP       HTTPConfig       `toml:"http"`
}

// RenderConfig controls section evaluation.
type RenderConfig struct {
	// SectionTimeout bounds a single section or block evaluation. Zero disables the bound.
	SectionTimeout  time.Duration `toml:"section_timeout"`
	PageConcurrency int           `toml:"page_concurrency"`
	AssetBaseURL    string        `toml:"asset_base_url"`
	ImageBaseURL    string        `toml:"image_base_url"`
	DefaultCurrency string        `toml:"default_currency"`
	ExposeErrors    bool          `toml:"expose_errors"`
}

// StorageConfig selects the persistence backend for templates and snippets.
type StorageConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// CacheConfig toggles the read cache over database repositories.
type CacheConfig struct {
	Enabled    bool          `toml:"enabled"`
	DefaultTTL time.Duration `toml:"default_ttl"`
}

// SnippetsConfig seeds snippets from a directory of front-matter files.
type SnippetsConfig struct {
	Dir    string `toml:"dir"`
	Tenant string `toml:"tenant"`
	Watch  bool   `toml:"watch"`
	// Resync is a cron expression for periodic re-import of Dir.
	Resync string `toml:"resync"`
}

// ValidationConfig controls template acceptance.
type ValidationConfig struct {
	StrictSettingTypes bool `toml:"strict_setting_types"`
}

// LoggingConfig selects and configures the logger provider.
type LoggingConfig struct {
	Provider  string   `toml:"provider"`
	Level     string   `toml:"level"`
	Format    string   `toml:"format"`
	AddSource bool     `toml:"add_source"`
	Focus     []string `toml:"focus"`
}

// HTTPConfig configures the preview API server.
type HTTPConfig struct {
	Addr     string `toml:"addr"`
	BasePath string `toml:"base_path"`
}

// DefaultConfig returns the defaults used when no config file is supplied.
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			SectionTimeout:  2 * time.Second,
			PageConcurrency: 8,
			AssetBaseURL:    "/assets",
			DefaultCurrency: "USD",
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
		},
		Cache: CacheConfig{
			DefaultTTL: time.Minute,
		},
		Snippets: SnippetsConfig{
			Tenant: "default",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		HTTP: HTTPConfig{
			Addr:     ":8080",
			BasePath: "/api",
		},
	}
}

// Validate performs consistency checks across sections.
func (cfg Config) Validate() error {
	if cfg.Render.SectionTimeout < 0 {
		return ErrRenderTimeoutInvalid
	}
	if cfg.Render.PageConcurrency < 0 {
		return ErrPageConcurrencyInvalid
	}

	driver := NormalizeDriver(cfg.Storage.Driver)
	switch driver {
	case DriverMemory:
		if cfg.Cache.Enabled {
			return ErrCacheRequiresDatabase
		}
	case DriverSQLite3, DriverSQLite, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, driver)
	}

	if cfg.Snippets.Watch && strings.TrimSpace(cfg.Snippets.Dir) == "" {
		return ErrSnippetWatchRequiresDir
	}
	if strings.TrimSpace(cfg.Snippets.Resync) != "" && strings.TrimSpace(cfg.Snippets.Dir) == "" {
		return ErrSnippetResyncRequiresDir
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Logging.Provider))
	switch provider {
	case "", "console", "gologger":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// NormalizeDriver lowercases the driver name; blank means memory.
func NormalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		return DriverMemory
	}
	return driver
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
