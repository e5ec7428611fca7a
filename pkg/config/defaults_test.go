package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level INFO, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output stderr, got %s", cfg.Logging.Output)
	}
	if cfg.Coordinator.Address == "" {
		t.Error("Expected default coordinator address")
	}
	if cfg.Coordinator.DialTimeout != 10*time.Second {
		t.Errorf("Expected default dial timeout 10s, got %v", cfg.Coordinator.DialTimeout)
	}
	if cfg.Coordinator.FileRecordHint == 0 {
		t.Error("Expected nonzero file record hint")
	}
	if cfg.Paths.WorkingDir == "" {
		t.Error("Expected working dir default")
	}
	if cfg.Paths.SystemTemp == "" {
		t.Error("Expected system temp default")
	}
	if cfg.Content.Type != "filesystem" {
		t.Errorf("Expected default content type filesystem, got %s", cfg.Content.Type)
	}
	if cfg.Content.Filesystem.Path == "" {
		t.Error("Expected filesystem store path default")
	}
	if cfg.Content.Cache.MaxBytes == 0 {
		t.Error("Expected cache budget default")
	}
	if cfg.VFS == nil {
		t.Error("Expected VFS slice to be initialized")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:     LoggingConfig{Level: "debug", Output: "stdout"},
		Coordinator: CoordinatorConfig{Address: "10.0.0.1:7000", DialTimeout: time.Second},
		Content:     ContentConfig{Type: "memory"},
	}
	ApplyDefaults(cfg)

	// Level is normalized to uppercase, not replaced.
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected DEBUG, got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected stdout, got %s", cfg.Logging.Output)
	}
	if cfg.Coordinator.Address != "10.0.0.1:7000" {
		t.Errorf("Expected explicit address preserved, got %s", cfg.Coordinator.Address)
	}
	if cfg.Coordinator.DialTimeout != time.Second {
		t.Errorf("Expected explicit dial timeout preserved, got %v", cfg.Coordinator.DialTimeout)
	}
	if cfg.Content.Type != "memory" {
		t.Errorf("Expected memory, got %s", cfg.Content.Type)
	}
}

func TestGetDefaultConfig_Validates(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected default config to pass validation, got: %v", err)
	}
}
