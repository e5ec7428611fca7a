package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCoordinatorDefaults(&cfg.Coordinator)
	applyPathsDefaults(&cfg.Paths)
	applyContentDefaults(&cfg.Content)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.VFS == nil {
		cfg.VFS = []VFSEntryConfig{}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyCoordinatorDefaults sets coordinator connection defaults.
func applyCoordinatorDefaults(cfg *CoordinatorConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:1345"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.FileRecordHint == 0 {
		cfg.FileRecordHint = 1024
	}
}

// applyPathsDefaults sets path handling defaults.
func applyPathsDefaults(cfg *PathsConfig) {
	if cfg.WorkingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkingDir = wd
		} else {
			cfg.WorkingDir = "/"
		}
	}
	if cfg.SystemTemp == "" {
		cfg.SystemTemp = os.TempDir()
	}
}

// applyContentDefaults sets artifact store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem.Path == "" {
		cfg.Filesystem.Path = tempPath("agentfs-content")
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = tempPath("agentfs-cache")
	}
	if cfg.Cache.IndexDir == "" {
		cfg.Cache.IndexDir = tempPath("agentfs-cache-index")
	}
	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = 20 << 30 // 20GB
	}
}

// tempPath joins a name under the system temp directory.
func tempPath(name string) string {
	return filepath.Join(os.TempDir(), name)
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Address == "" {
		cfg.Address = "127.0.0.1:9090"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
