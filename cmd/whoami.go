// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dbrevel/cli/internal/auth"
	"dbrevel/cli/internal/render"
)

// identityView is the machine-readable form of whoami.
type identityView struct {
	Key        string     `json:"key"`
	Source     string     `json:"source"`
	BaseURL    string     `json:"base_url"`
	LoggedInAt *time.Time `json:"logged_in_at,omitempty"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show which project key is active",
	Long: `The whoami command shows the masked project API key the CLI would use, where
it came from (flag, env, config or keychain) and the configured service URL.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		id, err := auth.NewService().WhoAmI(flagAPIKey, rt.cfg.API.APIKey)
		if errors.Is(err, auth.ErrNoCredential) {
			printWarning(out, "Not logged in")
			printHint(out, "Run: dbrevel login")
			return nil
		}
		if err != nil {
			return err
		}

		v := identityView{
			Key:     id.Masked(),
			Source:  string(id.Source),
			BaseURL: rt.cfg.API.BaseURL,
		}
		if id.Source == auth.SourceKeychain && id.State.LoggedIn {
			at := id.State.LoggedInAt
			v.LoggedInAt = &at
		}

		if rt.format != render.FormatTable {
			return render.Encode(out, rt.format, v)
		}
		fmt.Fprintf(out, "Key:      %s\n", v.Key)
		fmt.Fprintf(out, "Source:   %s\n", v.Source)
		fmt.Fprintf(out, "Service:  %s\n", v.BaseURL)
		if v.LoggedInAt != nil {
			fmt.Fprintf(out, "Since:    %s\n", v.LoggedInAt.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
