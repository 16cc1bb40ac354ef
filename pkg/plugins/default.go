package plugins

import (
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/config"
	"github.com/platinummonkey/extpoint/pkg/observability"
)

var (
	defaultMu       sync.Mutex
	defaultRegistry atomic.Pointer[Registry]
	hostDescriptors []*Descriptor

	defaultMetricsOnce sync.Once
	defaultMetrics     *observability.Metrics
)

// RegisterHost adds a descriptor compiled into the binary to the default
// registry. It must be called before Default is first used, normally
// from an init function.
func RegisterHost(desc *Descriptor) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry.Load() != nil {
		logrus.WithField("module", desc.Name).Warn("Default registry already exists, host descriptor takes effect after SetDefault(nil)")
	}
	hostDescriptors = append(hostDescriptors, desc)
}

// Default returns the process-wide registry, constructing it from the
// environment on first use.
func Default() *Registry {
	if r := defaultRegistry.Load(); r != nil {
		return r
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()

	if r := defaultRegistry.Load(); r != nil {
		return r
	}

	r := newDefaultRegistry()
	defaultRegistry.Store(r)
	return r
}

// SetDefault replaces the process-wide registry. Nil makes the next
// Default call construct a fresh one.
func SetDefault(r *Registry) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry.Store(r)
}

func newDefaultRegistry() *Registry {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Errorf("Failed to load extension registry configuration: %v", err)
		return failedRegistry(err)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stderr)

	opts := OptionsFromConfig(cfg, nil)
	opts.Logger = log
	opts.Host = slices.Clone(hostDescriptors)
	if cfg.Observability.MetricsEnabled {
		opts.Metrics = processMetrics()
	}

	return NewRegistry(opts)
}

// OptionsFromConfig maps configuration onto registry options. A nil auth
// authorizes the configured feature tokens. Answers are memoized when a
// license cache TTL is set.
func OptionsFromConfig(cfg *config.Config, auth Authorizer) Options {
	opts := Options{
		ModuleRoot:   cfg.Plugins.ModuleDir,
		Pattern:      cfg.Plugins.ModulePattern,
		OrderingFile: cfg.Plugins.OrderingFile,
		Parallelism:  cfg.Plugins.Parallelism,
	}
	if cfg.Cache.Enabled {
		opts.CacheFile = cfg.Cache.File
	}

	if auth == nil {
		if slices.Contains(cfg.Plugins.AuthorizedFeatures, "*") {
			auth = AllowAll
		} else {
			auth = NewFeatureSet(cfg.Plugins.AuthorizedFeatures...)
		}
	}
	if cfg.Plugins.LicenseCacheTTL > 0 && cfg.Plugins.LicenseCacheSize > 0 {
		auth = NewCachedAuthorizer(auth, cfg.Plugins.LicenseCacheSize, cfg.Plugins.LicenseCacheTTL)
	}
	opts.Authorizer = auth

	return opts
}

// failedRegistry returns a registry whose every lookup reports err
func failedRegistry(err error) *Registry {
	r := NewRegistry(Options{})
	r.buildErr = err
	r.built.Store(true)
	return r
}

// processMetrics registers the default registry's metrics once per process
func processMetrics() *observability.Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = observability.NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
