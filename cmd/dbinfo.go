// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"dbrevel/cli/internal/dsn"
	"dbrevel/cli/internal/keychain"
	"dbrevel/cli/internal/logging"
)

// dbinfoCmd shows the database URLs saved by connect, with passwords masked.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo",
	Short: "Show saved database connections",
	Long: `The dbinfo command lists the PostgreSQL and MongoDB URLs saved with
'dbrevel connect'. Passwords are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		km, err := keychain.GetManager()
		if err != nil {
			printWarning(cmd.ErrOrStderr(), "Secure storage is not available on this system")
			return err
		}

		var lines []string
		for _, kind := range []string{"postgres", "mongodb"} {
			raw, err := km.LoadDatabaseURL(kind)
			if errors.Is(err, keychain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(raw) == "" {
				continue
			}
			lines = append(lines, pterm.Sprintf("%-9s %s", kind, maskURL(raw)))
		}

		if len(lines) == 0 {
			printWarning(out, "No database connection configured")
			printHint(out, "Run: dbrevel connect")
			return nil
		}

		pterm.DefaultBox.
			WithWriter(out).
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database Connections")).
			WithTopPadding(1).WithBottomPadding(1).WithLeftPadding(1).WithRightPadding(1).
			Println(strings.Join(lines, "\n"))
		pterm.Fprintln(out)
		pterm.Fprintln(out, "To update a connection, run: dbrevel connect")
		return nil
	},
}

// maskURL hides the password of a saved URL. Unparseable values fall back
// to pattern masking.
func maskURL(raw string) string {
	info, err := dsn.ParseInfo(raw)
	if err != nil {
		return logging.Mask(raw)
	}
	return info.Redacted()
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}
