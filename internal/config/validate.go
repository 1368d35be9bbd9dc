package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig validates the configuration and returns a list of validation errors.
// An empty slice indicates the configuration is valid.
func ValidateConfig(config *Config) []error {
	var errs []error

	errs = append(errs, validateServerConfig(&config.Server)...)
	errs = append(errs, validateDirectoryConfig(&config.Directory)...)
	errs = append(errs, validateSASLConfig(&config.SASL)...)
	errs = append(errs, validateLogConfig(&config.Logging)...)
	errs = append(errs, validateMetricsConfig(&config.Metrics)...)

	return errs
}

func validateServerConfig(config *ServerConfig) []error {
	var errs []error

	if err := validateAddress(config.Address); err != nil {
		errs = append(errs, ValidationError{Field: "server.address", Message: err.Error()})
	}
	if strings.TrimSpace(config.ServerName) == "" {
		errs = append(errs, ValidationError{Field: "server.serverName", Message: "must not be empty"})
	}
	if config.MaxConnections < 0 {
		errs = append(errs, ValidationError{Field: "server.maxConnections", Message: "must not be negative"})
	}
	if config.ReadTimeout < 0 {
		errs = append(errs, ValidationError{Field: "server.readTimeout", Message: "must not be negative"})
	}
	if config.WriteTimeout < 0 {
		errs = append(errs, ValidationError{Field: "server.writeTimeout", Message: "must not be negative"})
	}

	return errs
}

func validateDirectoryConfig(config *DirectoryConfig) []error {
	var errs []error

	if config.BaseDN != "" {
		if err := validateDN(config.BaseDN); err != nil {
			errs = append(errs, ValidationError{Field: "directory.baseDN", Message: err.Error()})
		}
	}

	for i, entry := range config.Entries {
		field := fmt.Sprintf("directory.entries[%d].dn", i)
		if strings.TrimSpace(entry.DN) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"})
			continue
		}
		if err := validateDN(entry.DN); err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
		}
	}

	return errs
}

func validateSASLConfig(config *SASLConfig) []error {
	var errs []error

	seen := make(map[string]bool, len(config.Mechanisms))
	for _, mech := range config.Mechanisms {
		name := strings.ToUpper(strings.TrimSpace(mech))
		if name == "" {
			errs = append(errs, ValidationError{Field: "sasl.mechanisms", Message: "mechanism names must not be empty"})
			continue
		}
		if seen[name] {
			errs = append(errs, ValidationError{Field: "sasl.mechanisms", Message: fmt.Sprintf("duplicate mechanism %s", name)})
		}
		seen[name] = true
	}

	if config.Protocol == "" {
		errs = append(errs, ValidationError{Field: "sasl.protocol", Message: "must not be empty"})
	}
	if config.UserIDAttribute == "" {
		errs = append(errs, ValidationError{Field: "sasl.userIDAttribute", Message: "must not be empty"})
	}
	if config.PasswordAttribute == "" {
		errs = append(errs, ValidationError{Field: "sasl.passwordAttribute", Message: "must not be empty"})
	}
	if config.SessionIdleTimeout < 0 {
		errs = append(errs, ValidationError{Field: "sasl.sessionIdleTimeout", Message: "must not be negative"})
	}
	if config.SessionIdleTimeout > 0 && config.SweepInterval <= 0 {
		errs = append(errs, ValidationError{Field: "sasl.sweepInterval", Message: "must be positive when an idle timeout is set"})
	}

	return errs
}

func validateLogConfig(config *LogConfig) []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if config.Level != "" && !validLevels[strings.ToLower(config.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: "must be debug, info, warn, or error",
		})
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if config.Format != "" && !validFormats[strings.ToLower(config.Format)] {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: "must be text or json",
		})
	}

	if config.Output != "" && config.Output != "stdout" && config.Output != "stderr" {
		dir := filepath.Dir(config.Output)
		if !filepath.IsAbs(config.Output) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: "must be stdout, stderr, or an absolute file path",
			})
		} else if _, err := os.Stat(dir); os.IsNotExist(err) {
			errs = append(errs, ValidationError{
				Field:   "logging.output",
				Message: fmt.Sprintf("directory %s does not exist", dir),
			})
		}
	}

	return errs
}

func validateMetricsConfig(config *MetricsConfig) []error {
	if !config.Enabled {
		return nil
	}

	var errs []error
	if err := validateAddress(config.Address); err != nil {
		errs = append(errs, ValidationError{Field: "metrics.address", Message: err.Error()})
	}
	if !strings.HasPrefix(config.Path, "/") {
		errs = append(errs, ValidationError{Field: "metrics.path", Message: "must start with /"})
	}
	return errs
}

func validateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %v", err)
	}
	if port == "" {
		return fmt.Errorf("port is required")
	}
	return nil
}

func validateDN(dn string) error {
	if _, err := ldap.ParseDN(dn); err != nil {
		return fmt.Errorf("invalid DN syntax: %v", err)
	}
	return nil
}
