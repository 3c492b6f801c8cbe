// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config holds CLI settings loaded from the XDG config dir and the
// environment. Secrets supplied here are optional: the project key normally
// lives in the OS keychain.
package config

import (
	"time"

	"dbrevel/cli/internal/retry"
)

// DefaultBaseURL is the hosted DbRevel API.
const DefaultBaseURL = "https://api.dbrevel.io"

// Config is the full CLI configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// APIConfig points the client at a backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	// AccessToken is the dashboard bearer token; only test-connection needs it.
	AccessToken string        `yaml:"access_token" mapstructure:"access_token"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig mirrors retry.Policy in config form.
type RetryConfig struct {
	MaxRetries           int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay           time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	MaxRetryDelay        time.Duration `yaml:"max_retry_delay" mapstructure:"max_retry_delay"`
	BackoffMultiplier    float64       `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	RetryableStatusCodes []int         `yaml:"retryable_status_codes" mapstructure:"retryable_status_codes"`
}

// LoggingConfig selects level, encoding and destination of logs.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or a file path
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	// Textfile is where the CLI dumps metrics after each command. Empty
	// means metrics.prom in the XDG state directory.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	def := retry.DefaultPolicy()
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:           def.MaxRetries,
			RetryDelay:           def.RetryDelay,
			MaxRetryDelay:        def.MaxRetryDelay,
			BackoffMultiplier:    def.BackoffMultiplier,
			RetryableStatusCodes: def.RetryableStatusCodes,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Namespace: "dbrevel",
		},
	}
}

// Policy converts the retry section into an engine policy.
func (r RetryConfig) Policy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = r.MaxRetries
	p.RetryDelay = r.RetryDelay
	p.MaxRetryDelay = r.MaxRetryDelay
	p.BackoffMultiplier = r.BackoffMultiplier
	if len(r.RetryableStatusCodes) > 0 {
		p.RetryableStatusCodes = append([]int(nil), r.RetryableStatusCodes...)
	}
	return p
}

// Overrides carries CLI flag values. Zero values leave the config untouched.
type Overrides struct {
	BaseURL    string
	APIKey     string
	LogLevel   string
	LogFormat  string
	Timeout    time.Duration
	MaxRetries *int
}

// ApplyOverrides applies CLI flag overrides.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.BaseURL != "" {
		c.API.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		c.API.APIKey = o.APIKey
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.Timeout > 0 {
		c.API.Timeout = o.Timeout
	}
	if o.MaxRetries != nil {
		c.Retry.MaxRetries = *o.MaxRetries
	}
}
