// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/probe"
	"dbrevel/cli/internal/render"
	"dbrevel/cli/internal/schema"
)

var (
	schemaTable      string
	schemaFindColumn string
	schemaFindField  string
	schemaLocal      string
)

var schemaCmd = &cobra.Command{
	Use:   "schema [database]",
	Short: "Show the schema of your connected databases",
	Long: `The schema command prints the tables and collections DbRevel sees in your
project's databases.

Examples:
  dbrevel schema                         # every database
  dbrevel schema postgres                # one database
  dbrevel schema postgres --table users  # columns and relationships of a table
  dbrevel schema --find-column email     # tables with an "email" column
  dbrevel schema --local postgres://...  # inspect a database directly`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if schemaLocal != "" {
			db, err := probe.New(rt.cfg.API.Timeout).Inspect(cmd.Context(), schemaLocal)
			if err != nil {
				return fail(cmd, err, "inspecting your database")
			}
			return writeDatabase(out, db.Name, db)
		}

		api, _, err := apiClient()
		if err != nil {
			return err
		}

		if len(args) == 1 && schemaTable == "" {
			db, err := api.GetSchema(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, err, "loading the schema")
			}
			return writeDatabase(out, args[0], db)
		}

		snap, err := api.GetSchemas(cmd.Context())
		if err != nil {
			return fail(cmd, err, "loading the schema")
		}
		h := schema.New(snap)

		switch {
		case schemaFindColumn != "":
			return writeRefs(out, h.FindTablesByColumn(schemaFindColumn), "table")
		case schemaFindField != "":
			return writeRefs(out, h.FindCollectionsByField(schemaFindField), "collection")
		case schemaTable != "":
			if len(args) == 0 {
				return fmt.Errorf("--table needs a database argument")
			}
			return writeTable(out, h, args[0], schemaTable)
		}

		if rt.format != render.FormatTable {
			return render.Encode(out, rt.format, snap)
		}
		return render.Schema(out, snap)
	},
}

func writeDatabase(w io.Writer, name string, db model.DatabaseSchema) error {
	if rt.format != render.FormatTable {
		return render.Encode(w, rt.format, db)
	}
	return render.Database(w, name, db)
}

func writeRefs(w io.Writer, refs []schema.TableRef, noun string) error {
	if rt.format != render.FormatTable {
		return render.Encode(w, rt.format, refs)
	}
	if len(refs) == 0 {
		_, err := fmt.Fprintf(w, "No %s found.\n", noun)
		return err
	}
	rows := make([][]string, len(refs))
	for i, r := range refs {
		rows[i] = []string{r.Database, r.Table}
	}
	return render.Table(w, []string{"database", noun}, rows)
}

// relationshipView is one outgoing foreign key, kept in column order.
type relationshipView struct {
	Column     string `json:"column"`
	References string `json:"references"`
}

type tableView struct {
	Table         model.TableSchema  `json:"table"`
	Relationships []relationshipView `json:"relationships"`
}

// writeTable prints one table's columns followed by its outgoing
// relationships in column order.
func writeTable(w io.Writer, h *schema.Helper, database, table string) error {
	t, ok := h.Table(database, table)
	if !ok {
		return fmt.Errorf("table %q not found in database %q", table, database)
	}
	rels := h.Relationships(database, table)

	if rt.format != render.FormatTable {
		refs := make([]relationshipView, 0, rels.Len())
		for el := rels.Front(); el != nil; el = el.Next() {
			refs = append(refs, relationshipView{Column: el.Key, References: el.Value.String()})
		}
		return render.Encode(w, rt.format, tableView{Table: t, Relationships: refs})
	}

	if err := render.Database(w, database, model.DatabaseSchema{Tables: []model.TableSchema{t}}); err != nil {
		return err
	}
	if rels.Len() == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nRelationships")
	for el := rels.Front(); el != nil; el = el.Next() {
		fmt.Fprintf(w, "  %s -> %s\n", el.Key, el.Value)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaTable, "table", "", "Show one table of the given database")
	schemaCmd.Flags().StringVar(&schemaFindColumn, "find-column", "", "List tables containing this column")
	schemaCmd.Flags().StringVar(&schemaFindField, "find-field", "", "List collections containing this field")
	schemaCmd.Flags().StringVar(&schemaLocal, "local", "", "Inspect a PostgreSQL URL directly instead of asking DbRevel")
}
