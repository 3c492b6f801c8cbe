// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/spf13/cobra"

	"dbrevel/cli/internal/render"
)

var healthDeep bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the DbRevel service is up",
	Long: `The health command reports the service status. With --deep the service also
checks each connected database and reports its status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api, _, err := apiClient()
		if err != nil {
			return err
		}

		call := api.Health
		if healthDeep {
			call = api.DeepHealth
		}
		h, err := call(cmd.Context())
		if err != nil {
			return fail(cmd, err, "checking service health")
		}

		if rt.format != render.FormatTable {
			return render.Encode(cmd.OutOrStdout(), rt.format, h)
		}
		return render.Health(cmd.OutOrStdout(), h)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthDeep, "deep", false, "Also check every connected database")
}
