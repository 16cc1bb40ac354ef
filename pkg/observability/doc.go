// Package observability provides logrus logging, Prometheus discovery metrics
// and graceful shutdown for extpoint binaries.
//
// # Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, observability.FormatJSON, os.Stderr)
//	logger.WithField("module", "shapes").Info("module loaded")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordModule(observability.ResultLoaded)
//	metrics.ObserveBuild(time.Since(start), len(extensions), len(points))
//
// A nil *Metrics is valid and records nothing.
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/plugins: Records discovery and instantiation metrics
//   - pkg/admin: Serves /metrics
package observability
