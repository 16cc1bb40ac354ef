package cli

import (
	"context"
	"flag"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/config"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/plugins"
)

// App holds what every command needs to build a registry
type App struct {
	Out    io.Writer
	Logger *logrus.Logger

	// Host descriptors compiled into the binary
	Host []*plugins.Descriptor

	// LoadConfig defaults to config.LoadConfig
	LoadConfig func() (*config.Config, error)

	// Context bounds long running commands; watch and serve also stop on SIGINT
	Context context.Context
}

// NewApp creates an App writing to stdout and configured from the environment
func NewApp(host ...*plugins.Descriptor) *App {
	return &App{
		Out:        os.Stdout,
		Host:       host,
		LoadConfig: config.LoadConfig,
	}
}

// registryFlags are accepted by every command that builds a registry
type registryFlags struct {
	dir      *string
	order    *string
	noCache  *bool
	logLevel *string
}

func addRegistryFlags(fs *flag.FlagSet) registryFlags {
	return registryFlags{
		dir:      fs.String("dir", "", "Module directory (overrides EXTPOINT_MODULE_DIR)"),
		order:    fs.String("order", "", "Extension ordering file (overrides EXTPOINT_ORDERING_FILE)"),
		noCache:  fs.Bool("no-cache", false, "Do not read or write the metadata cache"),
		logLevel: fs.String("log-level", "", "Log level (debug, info, warn, error)"),
	}
}

// config loads configuration and applies command line overrides
func (a *App) config(f registryFlags) (*config.Config, error) {
	load := a.LoadConfig
	if load == nil {
		load = config.LoadConfig
	}

	loaded, err := load()
	if err != nil {
		return nil, err
	}
	cfg := *loaded

	if *f.dir != "" {
		cfg.Plugins.ModuleDir = *f.dir
	}
	if *f.order != "" {
		cfg.Plugins.OrderingFile = *f.order
	}
	if *f.noCache {
		cfg.Cache.Enabled = false
	}
	if *f.logLevel != "" {
		cfg.Observability.LogLevel = observability.ParseLevel(*f.logLevel)
	}

	return &cfg, nil
}

func (a *App) logger(cfg *config.Config) *logrus.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)
}

// registry builds a registry from configuration
func (a *App) registry(cfg *config.Config, metrics *observability.Metrics) *plugins.Registry {
	opts := plugins.OptionsFromConfig(cfg, nil)
	opts.Logger = a.logger(cfg)
	opts.Host = a.Host
	opts.Metrics = metrics
	return plugins.NewRegistry(opts)
}

func (a *App) context() context.Context {
	if a.Context == nil {
		return context.Background()
	}
	return a.Context
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}
