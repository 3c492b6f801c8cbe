// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"dbrevel/cli/internal/keychain"
	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/probe"
	"dbrevel/cli/internal/render"
)

var (
	tcPostgresURL string
	tcMongoDBURL  string
	tcProjectID   string
	tcLocal       bool
)

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Check that database URLs are reachable",
	Long: `The test-connection command checks PostgreSQL and MongoDB URLs and shows a short
preview of what it found. It never changes saved settings.

Without URL flags the URLs saved by 'dbrevel connect' are used. By default the
DbRevel service runs the check; --local connects from this machine instead
(PostgreSQL only).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets := model.ConnectionTargets{
			ProjectID:   strings.TrimSpace(tcProjectID),
			PostgresURL: strings.TrimSpace(tcPostgresURL),
			MongoDBURL:  strings.TrimSpace(tcMongoDBURL),
		}
		if tcLocal && targets.ProjectID != "" {
			return errors.New("--project cannot be combined with --local: saved projects are only tested through DbRevel")
		}
		if targets.Empty() {
			targets = savedTargets()
		}
		if targets.Empty() {
			return errors.New("nothing to test: pass --postgres, --mongodb or --project, or run 'dbrevel connect' first")
		}

		var res model.ConnectionTestResult
		if tcLocal {
			stop := startSpinner(cmd.ErrOrStderr(), "Connecting")
			res = probe.New(rt.cfg.API.Timeout).Local(cmd.Context(), targets)
			stop()
		} else {
			api, _, err := apiClient()
			if err != nil {
				return err
			}
			stop := startSpinner(cmd.ErrOrStderr(), "Testing connections")
			res, err = api.TestConnection(cmd.Context(), targets)
			stop()
			if err != nil {
				return fail(cmd, err, "testing connections")
			}
		}

		if rt.format != render.FormatTable {
			return render.Encode(cmd.OutOrStdout(), rt.format, res)
		}
		return render.ConnectionTest(cmd.OutOrStdout(), res)
	},
}

// savedTargets returns URLs stored by connect. A missing keychain yields
// no targets.
func savedTargets() model.ConnectionTargets {
	var t model.ConnectionTargets
	km, err := keychain.GetManager()
	if err != nil {
		return t
	}
	t.PostgresURL, _ = km.LoadDatabaseURL("postgres")
	t.MongoDBURL, _ = km.LoadDatabaseURL("mongodb")
	return t
}

func init() {
	rootCmd.AddCommand(testConnectionCmd)
	f := testConnectionCmd.Flags()
	f.StringVar(&tcPostgresURL, "postgres", "", "PostgreSQL URL to test")
	f.StringVar(&tcMongoDBURL, "mongodb", "", "MongoDB URL to test")
	f.StringVar(&tcProjectID, "project", "", "Test the databases of a saved project")
	f.BoolVar(&tcLocal, "local", false, "Connect from this machine instead of through DbRevel")
}
