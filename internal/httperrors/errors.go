// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors classifies low-level network failures and renders the
// client's typed errors as user-friendly terminal messages.
package httperrors

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Cause is a coarse category for failures below the HTTP layer.
type Cause string

const (
	CauseTimeout           Cause = "timeout"
	CauseDNS               Cause = "dns"
	CauseConnectionRefused Cause = "connection_refused"
	CauseTLS               Cause = "tls"
	CauseOther             Cause = "other"
)

// Classify returns the most specific Cause for err.
func Classify(err error) Cause {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return CauseTimeout
	case IsDNS(err):
		return CauseDNS
	case IsConnectionRefused(err):
		return CauseConnectionRefused
	case IsTLS(err):
		return CauseTLS
	default:
		return CauseOther
	}
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsDNS checks if the error is a DNS resolution error.
func IsDNS(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsConnectionRefused checks if the error is a connection refused error.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// IsTLS checks if the error is an SSL/TLS error.
func IsTLS(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") ||
		strings.Contains(errStr, "certificate") ||
		strings.Contains(errStr, "handshake")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
