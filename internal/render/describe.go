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

// Schema writes every database of a snapshot in name order.
func Schema(w io.Writer, snap model.SchemaSnapshot) error {
	names := make([]string, 0, len(snap.Databases))
	for n := range snap.Databases {
		names = append(names, n)
	}
	sort.Strings(names)

	for i, n := range names {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := Database(w, n, snap.Databases[n]); err != nil {
			return err
		}
	}
	return nil
}

// Database writes one database schema: tables with their columns, or
// collections with their inferred fields.
func Database(w io.Writer, name string, db model.DatabaseSchema) error {
	var b strings.Builder
	switch db.Kind() {
	case model.KindRelational:
		fmt.Fprintf(&b, "%s (relational, %s)\n", name, plural(len(db.Tables), "table"))
		for _, t := range db.Tables {
			b.WriteString("  " + t.Name + "\n")
			rows := make([][3]string, 0, len(t.Columns))
			for _, c := range t.Columns {
				rows = append(rows, [3]string{c.Name, c.Type, columnFlags(c)})
			}
			aligned(&b, rows)
		}
	case model.KindDocument:
		fmt.Fprintf(&b, "%s (document, %s)\n", name, plural(len(db.Collections), "collection"))
		for _, c := range db.Collections {
			b.WriteString("  " + c.Name + "\n")
			rows := make([][3]string, 0, len(c.Fields))
			for _, f := range c.Fields {
				flag := ""
				if f.Required {
					flag = "required"
				}
				rows = append(rows, [3]string{f.Name, f.Type, flag})
			}
			aligned(&b, rows)
		}
	default:
		fmt.Fprintf(&b, "%s (empty)\n", name)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func columnFlags(c model.ColumnSchema) string {
	var flags []string
	if c.PrimaryKey {
		flags = append(flags, "PK")
	}
	if c.Nullable {
		flags = append(flags, "NULL")
	}
	if c.ForeignKey != nil {
		flags = append(flags, "FK -> "+c.ForeignKey.String())
	}
	return strings.Join(flags, " ")
}

// aligned writes name/type/flags triples indented under a table.
func aligned(b *strings.Builder, rows [][3]string) {
	wn, wt := 0, 0
	for _, r := range rows {
		wn = max(wn, runewidth.StringWidth(r[0]))
		wt = max(wt, runewidth.StringWidth(r[1]))
	}
	for _, r := range rows {
		line := "    " + runewidth.FillRight(r[0], wn) + "  " + runewidth.FillRight(r[1], wt) + "  " + r[2]
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
}

// Health writes a health snapshot with per-database status.
func Health(w io.Writer, h model.HealthSnapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", h.Status)
	names := make([]string, 0, len(h.Databases))
	for n := range h.Databases {
		names = append(names, n)
	}
	sort.Strings(names)
	width := 0
	for _, n := range names {
		width = max(width, runewidth.StringWidth(n))
	}
	for _, n := range names {
		b.WriteString("  " + runewidth.FillRight(n, width) + "  " + h.Databases[n] + "\n")
	}
	if h.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", h.Message)
	}
	if h.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", h.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ConnectionTest writes per-database probe outcomes with their previews.
func ConnectionTest(w io.Writer, res model.ConnectionTestResult) error {
	var b strings.Builder
	for _, kind := range []string{"postgres", "mongodb"} {
		r := res.Results()[kind]
		if r == nil {
			continue
		}
		if !r.Success {
			fmt.Fprintf(&b, "%s: failed: %s\n", kind, r.Error)
			continue
		}
		p := r.SchemaPreview
		if p == nil {
			fmt.Fprintf(&b, "%s: ok\n", kind)
			continue
		}
		if len(p.Collections) > 0 || p.CollectionCount > 0 {
			fmt.Fprintf(&b, "%s: ok (database %s, %s)\n", kind, p.DatabaseName, plural(p.CollectionCount, "collection"))
			for _, c := range p.Collections {
				fmt.Fprintf(&b, "  %s (%s): %s\n", c.Name, plural(c.FieldCount, "field"), strings.Join(c.Fields, ", "))
			}
			continue
		}
		fmt.Fprintf(&b, "%s: ok (database %s, %s)\n", kind, p.DatabaseName, plural(p.TableCount, "table"))
		for _, t := range p.Tables {
			fmt.Fprintf(&b, "  %s (%s): %s\n", t.Name, plural(t.ColumnCount, "column"), strings.Join(t.Columns, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
