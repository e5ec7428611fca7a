package config

import (
	"github.com/buildbeam/agentfs/pkg/metrics"
	promMetrics "github.com/buildbeam/agentfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// SessionMetrics is the metrics collector for the session layer
	// (never nil, uses noop if disabled)
	SessionMetrics metrics.SessionMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:         nil,
			SessionMetrics: metrics.NewNoopSessionMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Address: cfg.Metrics.Address,
	})

	return &MetricsResult{
		Server:         server,
		SessionMetrics: promMetrics.NewSessionMetrics(),
	}
}
