// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema is a read-only index over a fetched schema snapshot. Every
// lookup is a pure projection: misses return empty results, never errors.
package schema

import (
	"sort"

	"github.com/elliotchance/orderedmap/v2"

	"dbrevel/cli/internal/model"
)

// Helper indexes one SchemaSnapshot.
type Helper struct {
	snap  model.SchemaSnapshot
	names []string
}

// TableRef locates a table or collection.
type TableRef struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// New indexes snap. The snapshot must not be modified afterwards.
func New(snap model.SchemaSnapshot) *Helper {
	names := make([]string, 0, len(snap.Databases))
	for name := range snap.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Helper{snap: snap, names: names}
}

// Databases lists database names in sorted order.
func (h *Helper) Databases() []string {
	return append([]string(nil), h.names...)
}

// Database returns the schema for name.
func (h *Helper) Database(name string) (model.DatabaseSchema, bool) {
	db, ok := h.snap.Databases[name]
	return db, ok
}

// Tables lists table names of a relational database.
func (h *Helper) Tables(database string) []string {
	db := h.snap.Databases[database]
	out := make([]string, 0, len(db.Tables))
	for _, t := range db.Tables {
		out = append(out, t.Name)
	}
	return out
}

// Collections lists collection names of a document database.
func (h *Helper) Collections(database string) []string {
	db := h.snap.Databases[database]
	out := make([]string, 0, len(db.Collections))
	for _, c := range db.Collections {
		out = append(out, c.Name)
	}
	return out
}

func (h *Helper) Table(database, table string) (model.TableSchema, bool) {
	for _, t := range h.snap.Databases[database].Tables {
		if t.Name == table {
			return t, true
		}
	}
	return model.TableSchema{}, false
}

func (h *Helper) Collection(database, collection string) (model.CollectionSchema, bool) {
	for _, c := range h.snap.Databases[database].Collections {
		if c.Name == collection {
			return c, true
		}
	}
	return model.CollectionSchema{}, false
}

func (h *Helper) HasTable(database, table string) bool {
	_, ok := h.Table(database, table)
	return ok
}

func (h *Helper) HasCollection(database, collection string) bool {
	_, ok := h.Collection(database, collection)
	return ok
}

// Columns lists column names of a table in declaration order.
func (h *Helper) Columns(database, table string) []string {
	t, _ := h.Table(database, table)
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Name)
	}
	return out
}

// Fields lists field names of a collection.
func (h *Helper) Fields(database, collection string) []string {
	c, _ := h.Collection(database, collection)
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Name)
	}
	return out
}

func (h *Helper) Column(database, table, column string) (model.ColumnSchema, bool) {
	t, _ := h.Table(database, table)
	for _, c := range t.Columns {
		if c.Name == column {
			return c, true
		}
	}
	return model.ColumnSchema{}, false
}

// PrimaryKeys lists the primary-key columns of a table.
func (h *Helper) PrimaryKeys(database, table string) []string {
	t, _ := h.Table(database, table)
	out := []string{}
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// ForeignKeys lists the columns of a table that reference another table.
func (h *Helper) ForeignKeys(database, table string) []string {
	t, _ := h.Table(database, table)
	out := []string{}
	for _, c := range t.Columns {
		if c.ForeignKey != nil {
			out = append(out, c.Name)
		}
	}
	return out
}

// Relationships maps each foreign-key column of a table to the table column
// it references, in column declaration order.
func (h *Helper) Relationships(database, table string) *orderedmap.OrderedMap[string, model.ForeignKeyRef] {
	rels := orderedmap.NewOrderedMap[string, model.ForeignKeyRef]()
	t, _ := h.Table(database, table)
	for _, c := range t.Columns {
		if c.ForeignKey != nil {
			rels.Set(c.Name, *c.ForeignKey)
		}
	}
	return rels
}

// FindTablesByColumn returns every table, across all databases, that has a
// column named exactly column. Results are ordered by database then table
// declaration order.
func (h *Helper) FindTablesByColumn(column string) []TableRef {
	out := []TableRef{}
	for _, name := range h.names {
		for _, t := range h.snap.Databases[name].Tables {
			for _, c := range t.Columns {
				if c.Name == column {
					out = append(out, TableRef{Database: name, Table: t.Name})
					break
				}
			}
		}
	}
	return out
}

// FindCollectionsByField returns every collection, across all databases,
// that has a field named exactly field.
func (h *Helper) FindCollectionsByField(field string) []TableRef {
	out := []TableRef{}
	for _, name := range h.names {
		for _, c := range h.snap.Databases[name].Collections {
			for _, f := range c.Fields {
				if f.Name == field {
					out = append(out, TableRef{Database: name, Table: c.Name})
					break
				}
			}
		}
	}
	return out
}
