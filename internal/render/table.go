// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"dbrevel/cli/internal/model"
)

// Table writes an aligned text table. Widths are measured in display
// columns so CJK text and emoji line up.
func Table(w io.Writer, columns []string, rows [][]string) error {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for _, r := range rows {
		for i := range columns {
			if i < len(r) {
				widths[i] = max(widths[i], runewidth.StringWidth(r[i]))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(columns))
		for i := range columns {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == len(columns)-1 {
				parts[i] = cell
			} else {
				parts[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		return strings.TrimRight(strings.Join(parts, " | "), " ")
	}

	sep := make([]string, len(columns))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}

	var b strings.Builder
	b.WriteString(line(columns) + "\n")
	b.WriteString(strings.Join(sep, "-+-") + "\n")
	for _, r := range rows {
		b.WriteString(line(r) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Columns returns the union of row keys in sorted order.
func Columns(rows []model.Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// Rows writes result rows as a table. Missing keys render empty.
func Rows(w io.Writer, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := Columns(rows)
	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			if v, ok := r[c]; ok {
				cells[i][j] = FormatValue(v)
			}
		}
	}
	return Table(w, cols, cells)
}

// ResultOptions controls Result.
type ResultOptions struct {
	ShowPlan bool
	DryRun   bool
}

// Result writes a query result in format f. Table output shows the plan
// for dry runs or when asked, then rows and a one-line summary.
func Result(w io.Writer, f Format, res model.QueryResult[model.Row], opts ResultOptions) error {
	if f != FormatTable {
		return Encode(w, f, res)
	}

	if opts.ShowPlan || opts.DryRun {
		if err := Plan(w, res.Metadata.QueryPlan); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	if opts.DryRun {
		_, err := fmt.Fprintln(w, "Dry run: nothing was executed.")
		return err
	}
	if err := Rows(w, res.Data); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, Summary(res.Metadata, len(res.Data)))
	return err
}

// Summary is the footer line, e.g. "(2 rows, 12.5 ms, trace abc, cached)".
func Summary(md model.QueryMetadata, rows int) string {
	parts := []string{plural(rows, "row"), formatFloat(md.ExecutionTimeMs) + " ms"}
	if md.TraceID != "" {
		parts = append(parts, "trace "+md.TraceID)
	}
	if md.Cached {
		parts = append(parts, "cached")
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
