// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Plugin discovery settings:
//
//	EXTPOINT_INSTALL_DIR="/opt/app"        # defaults to the executable's directory
//	EXTPOINT_PLUGIN_PATH="plugins"         # relative to the install directory
//	EXTPOINT_MODULE_DIR="/opt/app/plugins" # explicit module root, skips the fallback
//	EXTPOINT_MODULE_PATTERN=".so"
//	EXTPOINT_ORDERING_FILE="/etc/app/extensions.yaml"
//	EXTPOINT_PARALLELISM="4"
//
// When the plugin path does not exist below the install directory the install
// directory itself is scanned.
//
// Cache settings:
//
//	EXTPOINT_CACHE_ENABLED="true"
//	EXTPOINT_CACHE_FILE="/var/cache/app/metadata.cache"
//
// Licensing settings:
//
//	EXTPOINT_LICENSE_CACHE_SIZE="256"
//	EXTPOINT_LICENSE_CACHE_TTL="5m"
//	EXTPOINT_AUTHORIZED_FEATURES="*"   # comma separated feature tokens, * for all
//
// Observability settings:
//
//	EXTPOINT_LOG_LEVEL="info"    # debug, info, warn, error
//	EXTPOINT_LOG_FORMAT="text"   # text, json
//	EXTPOINT_METRICS_ENABLED="true"
//
// Admin server settings:
//
//	EXTPOINT_ADMIN_ADDR="127.0.0.1:9090"
//	EXTPOINT_SHUTDOWN_TIMEOUT="10s"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Plugins.ModuleDir)
//
// # Related Packages
//
//   - pkg/plugins: Consumes plugin and cache settings
//   - pkg/observability: Logger and metrics built from observability settings
package config
