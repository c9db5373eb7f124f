// Package metrics defines nil-safe metrics interfaces for each subsystem
// (thread pool, DB pool, file cache, notification dispatcher). Each
// NewXMetrics constructor returns nil when metrics are disabled, so every
// call site pays no cost beyond a nil check. The concrete Prometheus
// implementation lives in pkg/metrics/prometheus and registers itself with
// this package's RegisterXMetricsConstructor functions from an init(), so
// this package never imports pkg/metrics/prometheus (which imports it).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates and returns a fresh Prometheus registry, enabling
// metrics collection process-wide. Call once during startup before
// constructing any component; components built before InitRegistry get nil
// metrics regardless.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// GetRegistry returns the registry passed to InitRegistry, or a throwaway
// registry if InitRegistry was never called.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return prometheus.NewRegistry()
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}
