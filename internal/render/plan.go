// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"fmt"
	"io"
	"strings"

	"dbrevel/cli/internal/model"
)

// Plan writes a query plan as indented text.
func Plan(w io.Writer, p model.QueryPlan) error {
	var b strings.Builder
	b.WriteString("Plan\n")
	kv(&b, "Databases", strings.Join(p.Databases, ", "))
	kv(&b, "Strategy", p.JoinStrategy)
	kv(&b, "Cost", p.EstimatedCost)
	kv(&b, "Security", strings.Join(p.SecurityApplied, ", "))
	kv(&b, "Reasoning", p.Reasoning)

	for i, q := range p.Queries {
		fmt.Fprintf(&b, "\n  %d. %s (%s)", i+1, q.Database, q.QueryType)
		if q.Collection != "" {
			fmt.Fprintf(&b, " on %s", q.Collection)
		}
		b.WriteString("\n")

		for _, line := range queryLines(q) {
			b.WriteString("     " + line + "\n")
		}
		if len(q.Parameters) > 0 {
			b.WriteString("     Parameters: " + compactJSON(q.Parameters) + "\n")
		}
		if q.EstimatedRows != nil {
			fmt.Fprintf(&b, "     Estimated rows: %d\n", *q.EstimatedRows)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func kv(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "  %-10s %s\n", label+":", value)
}

// queryLines gives SQL its own lines and one pipeline stage per line.
func queryLines(q model.DatabaseQuery) []string {
	if sql, ok := q.SQL(); ok {
		var out []string
		for _, l := range strings.Split(strings.TrimSpace(sql), "\n") {
			out = append(out, strings.TrimRight(l, " \t"))
		}
		return out
	}
	if stages, ok := q.Pipeline(); ok {
		out := make([]string, 0, len(stages))
		for _, s := range stages {
			out = append(out, compactJSON(s))
		}
		return out
	}
	return []string{compactJSON(q.Query)}
}
