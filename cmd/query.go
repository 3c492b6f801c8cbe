// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/render"
)

var (
	queryDryRun      bool
	queryShowPlan    bool
	queryContext     map[string]string
	queryContextJSON string
)

var queryCmd = &cobra.Command{
	Use:   "query <intent>",
	Short: "Run a natural-language query against your databases",
	Long: `The query command sends an intent to DbRevel, which plans and executes it across
your connected PostgreSQL and MongoDB databases.

Use --dry-run to see the generated plan without executing anything. Values given
with --context are forwarded untouched to your project's row-level security rules.

Examples:
  dbrevel query "Get all users from Lagos"
  dbrevel query --dry-run "Top 10 customers by order total"
  dbrevel query --context tenant_id=42 "Open invoices" -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		intent := strings.Join(args, " ")

		qctx, err := queryContextValues()
		if err != nil {
			return err
		}

		api, _, err := apiClient()
		if err != nil {
			return err
		}

		stop := startSpinner(cmd.ErrOrStderr(), "Planning your query")
		res, err := api.Query(cmd.Context(), intent, model.QueryOptions{DryRun: queryDryRun, Context: qctx})
		stop()
		if err != nil {
			return fail(cmd, err, "running your query")
		}

		rt.log.WithTrace("", res.Metadata.TraceID).Debugw("query finished",
			"rows", len(res.Data), "cached", res.Metadata.Cached)

		return render.Result(cmd.OutOrStdout(), rt.format, res, render.ResultOptions{
			ShowPlan: queryShowPlan,
			DryRun:   queryDryRun,
		})
	},
}

// queryContextValues merges --context-json with --context pairs; pairs win.
func queryContextValues() (map[string]any, error) {
	if queryContextJSON == "" && len(queryContext) == 0 {
		return nil, nil
	}
	out := map[string]any{}
	if queryContextJSON != "" {
		if err := json.Unmarshal([]byte(queryContextJSON), &out); err != nil {
			return nil, fmt.Errorf("--context-json must be a JSON object: %w", err)
		}
		if out == nil {
			return nil, fmt.Errorf("--context-json must be a JSON object, got %s", queryContextJSON)
		}
	}
	for k, v := range queryContext {
		out[k] = v
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryDryRun, "dry-run", false, "Plan only; do not execute")
	queryCmd.Flags().BoolVar(&queryShowPlan, "plan", false, "Print the query plan before the rows")
	queryCmd.Flags().StringToStringVar(&queryContext, "context", nil, "Security context key=value pairs")
	queryCmd.Flags().StringVar(&queryContextJSON, "context-json", "", "Security context as a JSON object")
}
