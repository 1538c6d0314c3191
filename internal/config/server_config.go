package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// ServerConfig holds ambient operational settings that the wire protocol
// and container format never need: logging, diagnostic endpoints, and the
// circuit breaker/retry tuning wrapped around container I/O. It is loaded
// from YAML, separately from the line-based container Config.
type ServerConfig struct {
	Global  GlobalConfig  `yaml:"global"`
	Circuit CircuitConfig `yaml:"circuit_breaker"`
	Retry   RetryConfig   `yaml:"retry"`
}

// GlobalConfig carries the ambient log level and diagnostic listen
// addresses.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
	HealthAddr  string `yaml:"health_addr"`
	StatusAddr  string `yaml:"status_addr"`
}

// CircuitConfig tunes internal/circuit's breaker wrapping container I/O.
type CircuitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// RetryConfig tunes pkg/retry's bounded backoff around container open.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// NewDefaultServerConfig returns sane ambient defaults.
func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsAddr: ":9090",
			HealthAddr:  ":9091",
			StatusAddr:  ":9092",
		},
		Circuit: CircuitConfig{
			Enabled:          true,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
	}
}

// LoadServerConfigFromFile loads a ServerConfig from a YAML file, falling
// back to defaults for any field the file leaves unset.
func LoadServerConfigFromFile(path string) (*ServerConfig, error) {
	cfg := NewDefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse server config: %w", err)
	}

	return cfg, nil
}

// Validate checks the ambient settings a server launch depends on.
func (c *ServerConfig) Validate() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	ok := false
	for _, level := range validLevels {
		if c.Global.LogLevel == level {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log_level %q (must be one of: %s)", c.Global.LogLevel, strings.Join(validLevels, ", "))
	}
	if c.Circuit.FailureThreshold <= 0 {
		return fmt.Errorf("circuit_breaker.failure_threshold must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}
	return nil
}
