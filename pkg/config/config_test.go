package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "EXTPOINT_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "EXTPOINT_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvTyped tests the typed getEnv helpers
func TestGetEnvTyped(t *testing.T) {
	t.Setenv("EXTPOINT_TEST_BOOL", "1")
	t.Setenv("EXTPOINT_TEST_INT", "12")
	t.Setenv("EXTPOINT_TEST_BAD_INT", "twelve")
	t.Setenv("EXTPOINT_TEST_DURATION", "90s")

	assert.True(t, getEnvBool("EXTPOINT_TEST_BOOL", false))
	assert.True(t, getEnvBool("EXTPOINT_TEST_UNSET", true))
	assert.Equal(t, 12, getEnvInt("EXTPOINT_TEST_INT", 3))
	assert.Equal(t, 3, getEnvInt("EXTPOINT_TEST_BAD_INT", 3))
	assert.Equal(t, 90*time.Second, getEnvDuration("EXTPOINT_TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("EXTPOINT_TEST_UNSET", time.Second))

	t.Setenv("EXTPOINT_TEST_LIST", " viewer, ,export ")
	t.Setenv("EXTPOINT_TEST_EMPTY_LIST", "")
	assert.Equal(t, []string{"viewer", "export"}, getEnvList("EXTPOINT_TEST_LIST", nil))
	assert.Empty(t, getEnvList("EXTPOINT_TEST_EMPTY_LIST", []string{"*"}))
	assert.Equal(t, []string{"*"}, getEnvList("EXTPOINT_TEST_UNSET", []string{"*"}))
}

func TestResolveModuleDir(t *testing.T) {
	install := t.TempDir()
	plugins := filepath.Join(install, "plugins")

	t.Run("falls back to install dir when plugin path is missing", func(t *testing.T) {
		assert.Equal(t, install, ResolveModuleDir(install, "plugins"))
	})

	t.Run("uses plugin path when it exists", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(plugins, 0o755))
		assert.Equal(t, plugins, ResolveModuleDir(install, "plugins"))
	})

	t.Run("absolute plugin path", func(t *testing.T) {
		assert.Equal(t, plugins, ResolveModuleDir("/nowhere", plugins))
	})

	t.Run("empty plugin path", func(t *testing.T) {
		assert.Equal(t, install, ResolveModuleDir(install, ""))
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	install := t.TempDir()
	t.Setenv("EXTPOINT_INSTALL_DIR", install)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, install, cfg.Plugins.ModuleDir)
	assert.Equal(t, ".so", cfg.Plugins.ModulePattern)
	assert.Equal(t, 4, cfg.Plugins.Parallelism)
	assert.Equal(t, []string{"*"}, cfg.Plugins.AuthorizedFeatures)
	assert.True(t, cfg.Cache.Enabled)
	assert.NotEmpty(t, cfg.Cache.File)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.Equal(t, observability.FormatText, cfg.Observability.LogFormat)
	assert.Equal(t, "127.0.0.1:9090", cfg.Admin.Addr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	moduleDir := t.TempDir()
	t.Setenv("EXTPOINT_MODULE_DIR", moduleDir)
	t.Setenv("EXTPOINT_MODULE_PATTERN", ".plugin")
	t.Setenv("EXTPOINT_CACHE_ENABLED", "false")
	t.Setenv("EXTPOINT_LOG_LEVEL", "debug")
	t.Setenv("EXTPOINT_LOG_FORMAT", "JSON")
	t.Setenv("EXTPOINT_ORDERING_FILE", "/etc/extpoint/order.yaml")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, moduleDir, cfg.Plugins.ModuleDir)
	assert.Equal(t, ".plugin", cfg.Plugins.ModulePattern)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, observability.FormatJSON, cfg.Observability.LogFormat)
	assert.Equal(t, "/etc/extpoint/order.yaml", cfg.Plugins.OrderingFile)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Plugins: PluginConfig{ModuleDir: "/opt/app", ModulePattern: ".so", Parallelism: 1},
			Cache:   CacheConfig{Enabled: true, File: "/tmp/cache"},
			Observability: ObservabilityConfig{
				LogFormat: observability.FormatText,
			},
			Admin: AdminConfig{Addr: ":9090"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing module dir", func(c *Config) { c.Plugins.ModuleDir = "" }, "module directory"},
		{"missing pattern", func(c *Config) { c.Plugins.ModulePattern = "" }, "module pattern"},
		{"zero parallelism", func(c *Config) { c.Plugins.Parallelism = 0 }, "parallelism"},
		{"negative license cache", func(c *Config) { c.Plugins.LicenseCacheSize = -1 }, "license cache"},
		{"cache without file", func(c *Config) { c.Cache.File = "" }, "cache file"},
		{"disabled cache without file", func(c *Config) { c.Cache = CacheConfig{} }, ""},
		{"bad log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "log format"},
		{"missing admin addr", func(c *Config) { c.Admin.Addr = "" }, "admin address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
