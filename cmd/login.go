// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"dbrevel/cli/internal/auth"
	"dbrevel/cli/internal/httperrors"
	"dbrevel/cli/internal/keychain"
	"dbrevel/cli/internal/terminal"
)

var (
	loginNoVerify    bool
	loginAccessToken bool
)

// loginCmd stores a project API key in the OS keychain after checking it
// against the service.
var loginCmd = &cobra.Command{
	Use:     "login [api-key]",
	Aliases: []string{"auth"},
	Short:   "Save a project API key",
	Long: `The login command stores your DbRevel project API key in the OS keychain.
The key is checked against the service first by fetching the project schema;
pass --no-verify to skip the check.

With --access-token the value is stored as the dashboard access token used by
test-connection instead.

When no key is given you are prompted for it without echo.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		secret := ""
		if len(args) == 1 {
			secret = strings.TrimSpace(args[0])
		} else {
			prompt := "Project API key: "
			if loginAccessToken {
				prompt = "Dashboard access token: "
			}
			line, err := terminal.ReadSecret(cmd.InOrStdin(), out, prompt)
			if err != nil {
				return err
			}
			secret = line
		}
		if secret == "" {
			return errors.New("a value is required")
		}

		if loginAccessToken {
			km, err := keychain.GetManager()
			if err != nil {
				return err
			}
			if err := km.SaveAccessToken(secret); err != nil {
				return err
			}
			printSuccess(out, "Access token saved")
			return nil
		}

		var verify auth.Verifier
		if !loginNoVerify {
			verify = verifyKey(cmd)
		}

		if err := auth.NewService().Login(cmd.Context(), secret, rt.cfg.API.BaseURL, verify); err != nil {
			return err
		}
		printSuccess(out, "Logged in. Key saved to the OS keychain.")
		return nil
	},
}

// verifyKey checks a key by fetching the project schema with it. Rejections
// are presented to the user before Login sees them.
func verifyKey(cmd *cobra.Command) auth.Verifier {
	return func(ctx context.Context, key string) error {
		api, err := clientFor(key)
		if err != nil {
			return err
		}
		stop := startSpinner(cmd.ErrOrStderr(), "Checking key")
		_, err = api.GetSchemas(ctx)
		stop()
		if err == nil {
			return nil
		}
		if httperrors.IsAuthFailure(err) {
			printWarning(cmd.ErrOrStderr(), "The service rejected this key. Nothing was saved.")
			return &shownError{err: err}
		}
		return fail(cmd, err, "checking your key")
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "Save the key without checking it")
	loginCmd.Flags().BoolVar(&loginAccessToken, "access-token", false, "Store a dashboard access token instead of an API key")
}
