package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/extpoint/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Plugin discovery configuration
	Plugins PluginConfig

	// Metadata cache configuration
	Cache CacheConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Admin server configuration
	Admin AdminConfig
}

// PluginConfig holds module discovery settings
type PluginConfig struct {
	InstallDir    string
	PluginPath    string
	ModuleDir     string
	ModulePattern string
	OrderingFile  string
	Parallelism   int

	// AuthorizedFeatures lists licensed feature tokens; "*" authorizes all
	AuthorizedFeatures []string
	LicenseCacheSize   int
	LicenseCacheTTL    time.Duration
}

// CacheConfig holds metadata cache settings
type CacheConfig struct {
	Enabled bool
	File    string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	LogFormat      observability.LogFormat
	MetricsEnabled bool
}

// AdminConfig holds introspection server settings
type AdminConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Plugins:       loadPluginConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
		Admin:         loadAdminConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadPluginConfig loads discovery configuration from environment
func loadPluginConfig() PluginConfig {
	cfg := PluginConfig{
		InstallDir:       getEnv("EXTPOINT_INSTALL_DIR", defaultInstallDir()),
		PluginPath:       getEnv("EXTPOINT_PLUGIN_PATH", "plugins"),
		ModulePattern:    getEnv("EXTPOINT_MODULE_PATTERN", ".so"),
		OrderingFile:     getEnv("EXTPOINT_ORDERING_FILE", ""),
		Parallelism:      getEnvInt("EXTPOINT_PARALLELISM", 4),
		LicenseCacheSize: getEnvInt("EXTPOINT_LICENSE_CACHE_SIZE", 256),
		LicenseCacheTTL:  getEnvDuration("EXTPOINT_LICENSE_CACHE_TTL", 5*time.Minute),
	}

	cfg.AuthorizedFeatures = getEnvList("EXTPOINT_AUTHORIZED_FEATURES", []string{"*"})

	cfg.ModuleDir = getEnv("EXTPOINT_MODULE_DIR", "")
	if cfg.ModuleDir == "" {
		cfg.ModuleDir = ResolveModuleDir(cfg.InstallDir, cfg.PluginPath)
	}

	return cfg
}

// loadCacheConfig loads cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getEnvBool("EXTPOINT_CACHE_ENABLED", true),
		File:    getEnv("EXTPOINT_CACHE_FILE", defaultCacheFile()),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLevel(getEnv("EXTPOINT_LOG_LEVEL", "info")),
		LogFormat:      observability.LogFormat(strings.ToLower(getEnv("EXTPOINT_LOG_FORMAT", "text"))),
		MetricsEnabled: getEnvBool("EXTPOINT_METRICS_ENABLED", true),
	}
}

// loadAdminConfig loads admin server configuration from environment
func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Addr:            getEnv("EXTPOINT_ADMIN_ADDR", "127.0.0.1:9090"),
		ShutdownTimeout: getEnvDuration("EXTPOINT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Plugins.ModuleDir == "" {
		return fmt.Errorf("module directory is required")
	}
	if c.Plugins.ModulePattern == "" {
		return fmt.Errorf("module pattern is required")
	}
	if c.Plugins.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Plugins.Parallelism)
	}
	if c.Plugins.LicenseCacheSize < 0 {
		return fmt.Errorf("license cache size must not be negative")
	}

	if c.Cache.Enabled && c.Cache.File == "" {
		return fmt.Errorf("cache file is required when the cache is enabled")
	}

	switch c.Observability.LogFormat {
	case observability.FormatText, observability.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Observability.LogFormat)
	}

	if c.Admin.Addr == "" {
		return fmt.Errorf("admin address is required")
	}

	return nil
}

// ResolveModuleDir joins pluginPath onto installDir, falling back to the
// install directory when that path does not exist
func ResolveModuleDir(installDir, pluginPath string) string {
	if pluginPath == "" {
		return installDir
	}

	candidate := pluginPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(installDir, pluginPath)
	}

	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return installDir
}

// defaultInstallDir returns the directory holding the running executable
func defaultInstallDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// defaultCacheFile returns the metadata cache path below the user cache dir
func defaultCacheFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "extpoint", "metadata.cache")
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable as a list
func getEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
