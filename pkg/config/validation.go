package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// Virtual roots must be absolute and unique
	virtuals := make(map[string]bool)
	for i, entry := range cfg.VFS {
		if !strings.HasPrefix(entry.Virtual, "/") {
			return fmt.Errorf("vfs[%d]: virtual root %q must be absolute", i, entry.Virtual)
		}
		if virtuals[entry.Virtual] {
			return fmt.Errorf("vfs[%d]: duplicate virtual root %q", i, entry.Virtual)
		}
		virtuals[entry.Virtual] = true
	}

	if cfg.Content.Type == "s3" && cfg.Content.S3.Bucket == "" {
		return fmt.Errorf("content.s3: bucket is required when content.type is s3")
	}

	if cfg.Content.Cache.Enabled && cfg.Content.Type == "memory" {
		return fmt.Errorf("content.cache: cache tier cannot wrap the memory store")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics: address is required when metrics are enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
