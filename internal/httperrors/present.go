// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pterm/pterm"

	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/logging"
)

// Present writes a user-friendly description of err to w and returns err
// unchanged so callers can `return httperrors.Present(...)`.
// action describes what was being attempted, e.g. "running your query".
func Present(w io.Writer, err error, action string) error {
	if err == nil {
		return nil
	}
	fmt.Fprint(w, Describe(err, action))
	return err
}

// Describe builds the text Present prints.
func Describe(err error, action string) string {
	var b strings.Builder
	e, ok := apperrors.As(err)
	if !ok {
		b.WriteString(pterm.Sprintf("❌ Unexpected error while %s\n\n", action))
		b.WriteString("  " + logging.Mask(err.Error()) + "\n\n")
		return b.String()
	}

	switch e.Kind {
	case apperrors.Timeout:
		b.WriteString(pterm.Sprintf("⏱️  Request timed out after %s while %s\n\n", e.Timeout, action))
		b.WriteString("The server took too long to respond. This could mean:\n")
		b.WriteString("  • Slow internet connection\n")
		b.WriteString("  • The query is expensive to plan or execute\n")
		b.WriteString("  • Server is under heavy load\n\n")
		b.WriteString("Try again, or raise the limit with --timeout.\n\n")

	case apperrors.Network:
		describeNetwork(&b, e, action)

	case apperrors.API:
		describeAPI(&b, e, action)

	case apperrors.Validation:
		b.WriteString(pterm.Sprintf("⚠️  Invalid input or response while %s\n\n", action))
		if e.Field != "" {
			b.WriteString(fmt.Sprintf("  Field:  %s\n", e.Field))
		}
		b.WriteString(fmt.Sprintf("  Reason: %s\n\n", e.Message))

	case apperrors.Cancelled:
		b.WriteString(pterm.Sprintf("🛑 Cancelled while %s\n\n", action))
	}
	return b.String()
}

func describeNetwork(b *strings.Builder, e *apperrors.E, action string) {
	switch Classify(e.Err) {
	case CauseDNS:
		b.WriteString(pterm.Sprintf("🌐 Cannot resolve server address while %s\n\n", action))
		b.WriteString("Please check:\n")
		b.WriteString("  • Your internet connection is working\n")
		b.WriteString("  • The configured base URL is spelled correctly\n")
		b.WriteString("  • No DNS-level blocking (corporate firewall, parental controls)\n\n")
	case CauseConnectionRefused:
		b.WriteString(pterm.Sprintf("🚫 Connection refused while %s\n\n", action))
		b.WriteString("The server is not accepting connections. This could mean:\n")
		b.WriteString("  • The service is temporarily down\n")
		b.WriteString("  • Firewall is blocking the connection\n")
		b.WriteString("  • Wrong server address or port\n\n")
	case CauseTLS:
		b.WriteString(pterm.Sprintf("🔒 Secure connection failed while %s\n\n", action))
		b.WriteString("Cannot establish a secure HTTPS connection. This could mean:\n")
		b.WriteString("  • SSL/TLS certificate issue\n")
		b.WriteString("  • Network proxy interfering with HTTPS\n")
		b.WriteString("  • System clock is incorrect\n\n")
	default:
		b.WriteString(pterm.Sprintf("❌ Cannot reach the DbRevel service while %s\n\n", action))
		b.WriteString("Please check:\n")
		b.WriteString("  • Your internet connection\n")
		b.WriteString("  • Firewall settings that might block HTTPS requests\n\n")
	}
	if e.Err != nil {
		details := logging.Mask(e.Err.Error())
		if len(details) > 100 {
			details = details[:100] + "..."
		}
		b.WriteString(pterm.Sprintf("Technical details: %s\n\n", details))
	}
}

func describeAPI(b *strings.Builder, e *apperrors.E, action string) {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		b.WriteString(pterm.Sprintf("🔑 Access denied while %s\n\n", action))
		b.WriteString("The project key was rejected. Run 'dbrevel login' to store a valid key.\n\n")
	case e.Status == http.StatusNotFound:
		b.WriteString(pterm.Sprintf("🔍 Not found while %s\n\n", action))
	case e.Status == http.StatusTooManyRequests:
		b.WriteString(pterm.Sprintf("🐢 Rate limited while %s\n\n", action))
		b.WriteString("Too many requests for this project. Wait a moment and try again.\n\n")
	case e.Status >= 500:
		b.WriteString(pterm.Sprintf("⚠️  Server error while %s\n\n", action))
		b.WriteString("This is not a problem with your setup. The issue is on our end.\n")
		b.WriteString("Please try again in a few minutes.\n\n")
	default:
		b.WriteString(pterm.Sprintf("❌ Request rejected (%d) while %s\n\n", e.Status, action))
	}
	if e.Message != "" {
		b.WriteString(fmt.Sprintf("  %s\n\n", logging.Mask(e.Message)))
	}
}

// IsAuthFailure reports whether err is an API rejection of the credential.
func IsAuthFailure(err error) bool {
	var e *apperrors.E
	if !errors.As(err, &e) || e.Kind != apperrors.API {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}
