// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"io"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"dbrevel/cli/internal/terminal"
)

// startSpinner shows a spinner on w while a call is in flight. It is a no-op
// when w is not a terminal, so piped output stays clean. The returned
// function stops the spinner and restores the cursor.
func startSpinner(w io.Writer, text string) func() {
	if !terminal.IsTerminal(w) {
		return func() {}
	}
	cursor.Hide()
	sp, err := pterm.DefaultSpinner.
		WithWriter(w).
		WithRemoveWhenDone(true).
		Start(text)
	if err != nil {
		cursor.Show()
		return func() {}
	}
	return func() {
		_ = sp.Stop()
		cursor.Show()
	}
}

func printSuccess(w io.Writer, msg string) {
	pterm.Fprintln(w, pterm.NewStyle(pterm.FgGreen).Sprint("✅ ")+msg)
}

func printWarning(w io.Writer, msg string) {
	pterm.Fprintln(w, pterm.NewStyle(pterm.FgYellow).Sprint("⚠️  ")+msg)
}

func printHint(w io.Writer, msg string) {
	pterm.Fprintln(w, pterm.NewStyle(pterm.FgGray).Sprint("   "+msg))
}
