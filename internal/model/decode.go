// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	apperrors "dbrevel/cli/internal/errors"
)

// Decode narrows validated generic JSON into out, matching fields by their
// json tags. Any failure is reported as a Validation error.
func Decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return apperrors.Wrap(apperrors.Validation, "cannot decode response", err)
	}
	return nil
}

// DecodeQueryResult narrows a validated QueryResult body. Rows are decoded
// into T, so callers can ask for Row or their own struct.
func DecodeQueryResult[T any](body any) (QueryResult[T], error) {
	var out QueryResult[T]
	if err := Decode(body, &out); err != nil {
		return QueryResult[T]{}, err
	}
	if out.Data == nil {
		out.Data = []T{}
	}
	return out, nil
}

// DecodeSchemaSnapshot normalizes and narrows a validated schema listing.
func DecodeSchemaSnapshot(body any) (SchemaSnapshot, error) {
	root, _ := body.(map[string]any)
	dbs, _ := root["databases"].(map[string]any)

	snap := SchemaSnapshot{Databases: make(map[string]DatabaseSchema, len(dbs))}
	for name, raw := range dbs {
		db, err := decodeDatabase(name, raw, "databases."+name)
		if err != nil {
			return SchemaSnapshot{}, err
		}
		snap.Databases[name] = db
	}
	return snap, nil
}

// DecodeDatabaseSchema normalizes and narrows a single database schema.
func DecodeDatabaseSchema(name string, body any) (DatabaseSchema, error) {
	return decodeDatabase(name, body, "")
}

func decodeDatabase(name string, raw any, path string) (DatabaseSchema, error) {
	norm := NormalizeDatabaseSchema(raw)
	var db DatabaseSchema
	if err := Decode(norm, &db); err != nil {
		return DatabaseSchema{}, err
	}
	if db.Name == "" {
		db.Name = name
	}
	if len(db.Tables) > 0 && len(db.Collections) > 0 {
		return DatabaseSchema{}, apperrors.NewValidation(joinPath(path, "collections"),
			"database has both tables and collections")
	}
	return db, nil
}

// DecodeHealth narrows a validated health body.
func DecodeHealth(body any) (HealthSnapshot, error) {
	var out HealthSnapshot
	err := Decode(body, &out)
	return out, err
}

// DecodeConnectionTest narrows a validated test-connection body.
func DecodeConnectionTest(body any) (ConnectionTestResult, error) {
	var out ConnectionTestResult
	err := Decode(body, &out)
	return out, err
}

// NormalizeDatabaseSchema rewrites the liberal wire forms of a database
// schema into the canonical list form:
//
//   - tables / collections keyed by name become lists sorted by name
//   - collection fields given as names or as a name-keyed object become
//     {name, type, required} objects
//   - foreign_key "table.column" becomes {table, column}
//   - index entries that are objects collapse to their name
//
// The input is not modified.
func NormalizeDatabaseSchema(raw any) map[string]any {
	src, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}

	if tables, ok := listOf(src["tables"]); ok {
		for i, t := range tables {
			tables[i] = normalizeTable(t)
		}
		out["tables"] = tables
	}
	if colls, ok := listOf(src["collections"]); ok {
		for i, c := range colls {
			colls[i] = normalizeCollection(c)
		}
		out["collections"] = colls
	}
	return out
}

// listOf accepts a list, or an object keyed by name whose values are objects.
// Object entries get a name field from their key when they lack one.
func listOf(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return append([]any(nil), x...), true
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			entry := copyMap(x[k])
			if entry == nil {
				entry = map[string]any{}
			}
			if _, ok := entry["name"].(string); !ok {
				entry["name"] = k
			}
			out = append(out, entry)
		}
		return out, true
	}
	return nil, false
}

func normalizeTable(v any) any {
	t := copyMap(v)
	if t == nil {
		return v
	}
	if cols, ok := t["columns"].([]any); ok {
		out := make([]any, len(cols))
		for i, c := range cols {
			col := copyMap(c)
			if col == nil {
				out[i] = c
				continue
			}
			if ref, ok := col["foreign_key"].(string); ok {
				col["foreign_key"] = parseForeignKey(ref)
			}
			out[i] = col
		}
		t["columns"] = out
	}
	t["indexes"] = indexNames(t["indexes"])
	return t
}

func normalizeCollection(v any) any {
	c := copyMap(v)
	if c == nil {
		return v
	}
	switch fields := c["fields"].(type) {
	case []any:
		out := make([]any, 0, len(fields))
		for _, f := range fields {
			switch x := f.(type) {
			case string:
				out = append(out, map[string]any{"name": x})
			case map[string]any:
				out = append(out, fieldFromObject(x, ""))
			}
		}
		c["fields"] = out
	case map[string]any:
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			obj, _ := fields[k].(map[string]any)
			out = append(out, fieldFromObject(obj, k))
		}
		c["fields"] = out
	}
	c["indexes"] = indexNames(c["indexes"])
	return c
}

// fieldFromObject keeps name/type/required. Sampled fields report nullable
// instead of required; a non-nullable field is treated as required.
func fieldFromObject(obj map[string]any, name string) map[string]any {
	f := map[string]any{"name": name}
	if n, ok := obj["name"].(string); ok && n != "" {
		f["name"] = n
	}
	if t, ok := obj["type"].(string); ok {
		f["type"] = t
	}
	if r, ok := obj["required"].(bool); ok {
		f["required"] = r
	} else if n, ok := obj["nullable"].(bool); ok {
		f["required"] = !n
	}
	return f
}

func parseForeignKey(ref string) any {
	ref = strings.TrimSpace(ref)
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return nil
	}
	return map[string]any{"table": ref[:i], "column": ref[i+1:]}
}

func indexNames(v any) any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(list))
	for _, idx := range list {
		switch x := idx.(type) {
		case string:
			out = append(out, x)
		case map[string]any:
			if n, ok := x["name"].(string); ok {
				out = append(out, n)
				continue
			}
			b, _ := json.Marshal(x)
			out = append(out, string(b))
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}

func copyMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
