// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

// SchemaKind tells relational and document databases apart.
type SchemaKind string

const (
	KindRelational SchemaKind = "relational"
	KindDocument   SchemaKind = "document"
	KindUnknown    SchemaKind = ""
)

// SchemaSnapshot is the GET /api/v1/schema payload.
type SchemaSnapshot struct {
	Databases map[string]DatabaseSchema `json:"databases"`
}

// DatabaseSchema describes one connected database. Exactly one of Tables and
// Collections is populated.
type DatabaseSchema struct {
	Name          string             `json:"name,omitempty"`
	Type          string             `json:"type,omitempty"`
	Tables        []TableSchema      `json:"tables,omitempty"`
	Collections   []CollectionSchema `json:"collections,omitempty"`
	Relationships []Relationship     `json:"relationships,omitempty"`
}

// Kind reports which variant the schema is.
func (d DatabaseSchema) Kind() SchemaKind {
	switch {
	case len(d.Tables) > 0:
		return KindRelational
	case len(d.Collections) > 0:
		return KindDocument
	case d.Type == "mongodb" || d.Type == "mongo":
		return KindDocument
	case d.Type == "postgres" || d.Type == "postgresql":
		return KindRelational
	}
	return KindUnknown
}

type TableSchema struct {
	Name     string         `json:"name"`
	Columns  []ColumnSchema `json:"columns"`
	Indexes  []string       `json:"indexes,omitempty"`
	RowCount *int           `json:"row_count,omitempty"`
}

type ColumnSchema struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Nullable   bool           `json:"nullable"`
	Default    any            `json:"default,omitempty"`
	PrimaryKey bool           `json:"primary_key"`
	ForeignKey *ForeignKeyRef `json:"foreign_key,omitempty"`
}

// ForeignKeyRef points at the referenced table column.
type ForeignKeyRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (r ForeignKeyRef) String() string { return r.Table + "." + r.Column }

type CollectionSchema struct {
	Name    string        `json:"name"`
	Fields  []FieldSchema `json:"fields,omitempty"`
	Indexes []string      `json:"indexes,omitempty"`
	Count   *int          `json:"count,omitempty"`
}

// FieldSchema is a document field inferred from sampled documents.
type FieldSchema struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	// Required is set when the field appeared in every sample.
	Required bool `json:"required"`
}

// Relationship links two table columns as "table.column" strings.
type Relationship struct {
	From string `json:"from"`
	To   string `json:"to"`
}
