// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidationErrors
	errs = append(errs, c.validateAPI()...)
	errs = append(errs, c.validateRetry()...)
	errs = append(errs, c.validateLogging()...)

	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Namespace) == "" {
		errs = append(errs, ValidationError{Field: "metrics.namespace", Message: "required when metrics are enabled"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateAPI() ValidationErrors {
	var errs ValidationErrors
	u, err := url.Parse(c.API.BaseURL)
	if c.API.BaseURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "must be an absolute http(s) URL"})
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, ValidationError{Field: "api.timeout", Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateRetry() ValidationErrors {
	var errs ValidationErrors
	r := c.Retry
	if r.MaxRetries < 0 {
		errs = append(errs, ValidationError{Field: "retry.max_retries", Message: "must be >= 0"})
	}
	if r.RetryDelay < 0 {
		errs = append(errs, ValidationError{Field: "retry.retry_delay", Message: "must be >= 0"})
	}
	if r.MaxRetryDelay < r.RetryDelay {
		errs = append(errs, ValidationError{Field: "retry.max_retry_delay", Message: "must be >= retry.retry_delay"})
	}
	if r.BackoffMultiplier < 1 {
		errs = append(errs, ValidationError{Field: "retry.backoff_multiplier", Message: "must be >= 1"})
	}
	for _, code := range r.RetryableStatusCodes {
		if code < 100 || code > 599 {
			errs = append(errs, ValidationError{
				Field:   "retry.retryable_status_codes",
				Message: fmt.Sprintf("%d is not an HTTP status", code),
			})
		}
	}
	return errs
}

func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{Field: "logging.level", Message: fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, ValidationError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}
	return errs
}
