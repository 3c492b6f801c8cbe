// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"dbrevel/cli/internal/auth"
	"dbrevel/cli/internal/keychain"
)

var logoutAll bool

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Long: `The logout command removes the project API key and access token from the OS
keychain and clears the local login state. With --all the saved database URLs
are removed too.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.NewService().Logout(); err != nil {
			return err
		}
		if logoutAll {
			km, err := keychain.GetManager()
			if err == nil {
				if err := km.ClearDatabaseURLs(); err != nil {
					return err
				}
			}
		}
		printSuccess(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "Also remove saved database connections")
}
