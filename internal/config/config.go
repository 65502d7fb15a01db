// Package config provides configuration management for the Meddler service.
package config

import (
	"fmt"
	"time"
)

// DefaultServiceName is the registered service name used when none is configured.
const DefaultServiceName = "Meddler"

// Config is the root configuration structure.
type Config struct {
	// ServiceName is used both to register the control handler and to start
	// the service dispatcher. The two must match.
	ServiceName  string             `json:"ServiceName"`
	StatusReport StatusReportConfig `json:"StatusReport"`
	Hook         HookConfig         `json:"Hook"`
}

// StatusReportConfig controls retrying of status submissions to the OS.
type StatusReportConfig struct {
	MaxAttempts  int           `json:"MaxAttempts"`
	RetryBackoff time.Duration `json:"RetryBackoff"`
}

// HookConfig contains settings for the input hook provider.
type HookConfig struct {
	InstallTimeout time.Duration `json:"InstallTimeout"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: DefaultServiceName,
		StatusReport: StatusReportConfig{
			MaxAttempts:  3,
			RetryBackoff: 200 * time.Millisecond,
		},
		Hook: HookConfig{
			InstallTimeout: 2 * time.Second,
		},
	}
}

// Merge applies non-zero values from other onto c.
func (c *Config) Merge(other *Config) {
	if other.ServiceName != "" {
		c.ServiceName = other.ServiceName
	}
	if other.StatusReport.MaxAttempts != 0 {
		c.StatusReport.MaxAttempts = other.StatusReport.MaxAttempts
	}
	if other.StatusReport.RetryBackoff != 0 {
		c.StatusReport.RetryBackoff = other.StatusReport.RetryBackoff
	}
	if other.Hook.InstallTimeout != 0 {
		c.Hook.InstallTimeout = other.Hook.InstallTimeout
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("ServiceName must not be empty")
	}
	if c.StatusReport.MaxAttempts < 1 {
		return fmt.Errorf("StatusReport.MaxAttempts must be at least 1, got %d", c.StatusReport.MaxAttempts)
	}
	if c.StatusReport.RetryBackoff < 0 {
		return fmt.Errorf("StatusReport.RetryBackoff must not be negative, got %s", c.StatusReport.RetryBackoff)
	}
	if c.Hook.InstallTimeout < 0 {
		return fmt.Errorf("Hook.InstallTimeout must not be negative, got %s", c.Hook.InstallTimeout)
	}
	return nil
}
