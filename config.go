package sections

import "github.com/goliatone/go-sections/internal/runtimeconfig"

var (
	ErrRenderTimeoutInvalid     = runtimeconfig.ErrRenderTimeoutInvalid
	ErrPageConcurrencyInvalid   = runtimeconfig.ErrPageConcurrencyInvalid
	ErrStorageDriverUnknown     = runtimeconfig.ErrStorageDriverUnknown
	ErrStorageDSNRequired       = runtimeconfig.ErrStorageDSNRequired
	ErrCacheRequiresDatabase    = runtimeconfig.ErrCacheRequiresDatabase
	ErrSnippetWatchRequiresDir  = runtimeconfig.ErrSnippetWatchRequiresDir
	ErrSnippetResyncRequiresDir = runtimeconfig.ErrSnippetResyncRequiresDir
	ErrLoggingProviderUnknown   = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid      = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid     = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config           = runtimeconfig.Config
	RenderConfig     = runtimeconfig.RenderConfig
	StorageConfig    = runtimeconfig.StorageConfig
	CacheConfig      = runtimeconfig.CacheConfig
	SnippetsConfig   = runtimeconfig.SnippetsConfig
	ValidationConfig = runtimeconfig.ValidationConfig
	LoggingConfig    = runtimeconfig.LoggingConfig
	HTTPConfig       = runtimeconfig.HTTPConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}
