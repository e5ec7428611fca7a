// Package metrics provides Prometheus metrics collection for the agent.
//
// All metrics are optional: if the registry is never initialized, components
// receive no-op implementations with zero overhead. The agent usually runs
// inside short-lived tool processes where a scrape endpoint makes no sense,
// so metrics default to off and are enabled from config for long-running
// agents.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry. Safe to call more
// than once; later calls are ignored. If never called, all metrics
// constructors return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
