package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configurable aspects of the agent:
//   - Logging behavior
//   - Coordinator connection settings
//   - Path handling (working directory, temp directory, case sensitivity)
//   - Virtual path roots
//   - Artifact store selection and type-specific configuration
//   - Metrics exposure
//
// Configuration sources (in order of precedence):
//  1. Environment variables (AGENTFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Store Configuration Pattern:
// The artifact store section contains one subsection per store type and
// only the subsection matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Coordinator contains connection settings for the remote coordinator
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`

	// Paths controls path normalization and key derivation
	Paths PathsConfig `mapstructure:"paths"`

	// VFS lists virtual path roots mapped onto local directories
	VFS []VFSEntryConfig `mapstructure:"vfs" validate:"dive"`

	// Content specifies the artifact store type and type-specific configuration
	Content ContentConfig `mapstructure:"content"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// CoordinatorConfig contains coordinator connection settings.
type CoordinatorConfig struct {
	// Address is the host:port of the coordinator
	Address string `mapstructure:"address" validate:"required,hostname_port"`

	// DialTimeout bounds the initial connection attempt
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"required,gt=0"`

	// FileRecordHint pre-sizes the mapped file table
	FileRecordHint int `mapstructure:"file_record_hint" validate:"gte=0"`
}

// PathsConfig controls path normalization.
type PathsConfig struct {
	// WorkingDir anchors relative path resolution. Empty means the
	// process working directory.
	WorkingDir string `mapstructure:"working_dir"`

	// SystemTemp is the temp directory whose files always resolve locally
	SystemTemp string `mapstructure:"system_temp"`

	// CaseInsensitive folds path keys and directory entry names
	CaseInsensitive bool `mapstructure:"case_insensitive"`
}

// VFSEntryConfig maps one virtual root onto a local directory.
type VFSEntryConfig struct {
	// Virtual is the virtual root prefix (e.g. "/vfs/project")
	Virtual string `mapstructure:"virtual" validate:"required"`

	// Local is the local directory the virtual root maps onto
	Local string `mapstructure:"local" validate:"required"`
}

// ContentConfig specifies artifact store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which artifact store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem FilesystemStoreConfig `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 S3StoreConfig `mapstructure:"s3"`

	// Cache layers a badger-indexed local cache over the selected store
	Cache CacheConfig `mapstructure:"cache"`
}

// FilesystemStoreConfig configures the filesystem artifact store.
type FilesystemStoreConfig struct {
	// Path is the root directory for stored artifacts
	Path string `mapstructure:"path"`
}

// S3StoreConfig configures the S3 artifact store.
type S3StoreConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	KeyPrefix string `mapstructure:"key_prefix"`

	// Endpoint and static credentials support S3-compatible storage
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

// CacheConfig configures the local artifact cache tier.
type CacheConfig struct {
	// Enabled turns the cache tier on
	Enabled bool `mapstructure:"enabled"`

	// Dir holds cached artifact payloads
	Dir string `mapstructure:"dir"`

	// IndexDir holds the badger access-time index
	IndexDir string `mapstructure:"index_dir"`

	// MaxBytes is the trim budget for the local tier
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Address is the listen address for the metrics endpoint
	Address string `mapstructure:"address"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AGENTFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the AGENTFS_ prefix and underscores
	// Example: AGENTFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("AGENTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/agentfs/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Missing config file is acceptable, defaults apply
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "agentfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "agentfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
