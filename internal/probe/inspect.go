// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package probe

import (
	"context"
	"database/sql"
	"fmt"

	"dbrevel/cli/internal/model"
)

// Preview limits, matching what the service returns from test-connection.
const (
	PreviewTables  = 10
	PreviewColumns = 5
)

const columnsQuery = `
	SELECT c.table_name, c.column_name, c.data_type, c.is_nullable = 'YES', c.column_default
	FROM information_schema.columns c
	JOIN information_schema.tables t
	  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
	ORDER BY c.table_name, c.ordinal_position`

const primaryKeysQuery = `
	SELECT kc.table_name, kc.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kc
	  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
	WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
	ORDER BY kc.table_name, kc.ordinal_position`

const foreignKeysQuery = `
	SELECT kc.table_name, kc.column_name, ccu.table_name, ccu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kc
	  ON tc.constraint_name = kc.constraint_name AND tc.table_schema = kc.table_schema
	JOIN information_schema.constraint_column_usage ccu
	  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
	WHERE tc.table_schema = $1 AND tc.constraint_type = 'FOREIGN KEY'
	ORDER BY kc.table_name, kc.column_name`

// Inspector reads table metadata for one schema from information_schema.
type Inspector struct {
	db     *sql.DB
	schema string
}

// NewInspector inspects the "public" schema of db.
func NewInspector(db *sql.DB) *Inspector {
	return &Inspector{db: db, schema: "public"}
}

// WithSchema returns an inspector for another schema.
func (si *Inspector) WithSchema(schema string) *Inspector {
	return &Inspector{db: si.db, schema: schema}
}

// DatabaseName returns current_database().
func (si *Inspector) DatabaseName(ctx context.Context) (string, error) {
	var name string
	if err := si.db.QueryRowContext(ctx, "SELECT current_database()").Scan(&name); err != nil {
		return "", fmt.Errorf("current database: %w", err)
	}
	return name, nil
}

// Preview builds the lightweight summary shown after a successful probe:
// the first PreviewTables tables, each with its first PreviewColumns columns.
func (si *Inspector) Preview(ctx context.Context) (*model.SchemaPreview, error) {
	name, err := si.DatabaseName(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := si.loadColumns(ctx)
	if err != nil {
		return nil, err
	}

	p := &model.SchemaPreview{DatabaseName: name, TableCount: len(tables), Tables: []model.TablePreview{}}
	for i, t := range tables {
		if i == PreviewTables {
			break
		}
		cols := make([]string, 0, PreviewColumns)
		for j, c := range t.Columns {
			if j == PreviewColumns {
				break
			}
			cols = append(cols, c.Name)
		}
		p.Tables = append(p.Tables, model.TablePreview{Name: t.Name, ColumnCount: len(t.Columns), Columns: cols})
	}
	return p, nil
}

// Inspect returns the full relational schema with primary and foreign keys.
func (si *Inspector) Inspect(ctx context.Context) (model.DatabaseSchema, error) {
	name, err := si.DatabaseName(ctx)
	if err != nil {
		return model.DatabaseSchema{}, err
	}
	tables, err := si.loadColumns(ctx)
	if err != nil {
		return model.DatabaseSchema{}, err
	}

	index := make(map[string]map[string]*model.ColumnSchema, len(tables))
	for i := range tables {
		cols := make(map[string]*model.ColumnSchema, len(tables[i].Columns))
		for j := range tables[i].Columns {
			cols[tables[i].Columns[j].Name] = &tables[i].Columns[j]
		}
		index[tables[i].Name] = cols
	}

	if err := si.loadPrimaryKeys(ctx, index); err != nil {
		return model.DatabaseSchema{}, err
	}
	rels, err := si.loadForeignKeys(ctx, index)
	if err != nil {
		return model.DatabaseSchema{}, err
	}

	return model.DatabaseSchema{
		Name:          name,
		Type:          "postgres",
		Tables:        tables,
		Relationships: rels,
	}, nil
}

// loadColumns returns tables in name order with columns in ordinal order.
func (si *Inspector) loadColumns(ctx context.Context) ([]model.TableSchema, error) {
	rows, err := si.db.QueryContext(ctx, columnsQuery, si.schema)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	var tables []model.TableSchema
	for rows.Next() {
		var (
			table, column, dataType string
			nullable                bool
			def                     sql.NullString
		)
		if err := rows.Scan(&table, &column, &dataType, &nullable, &def); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if len(tables) == 0 || tables[len(tables)-1].Name != table {
			tables = append(tables, model.TableSchema{Name: table})
		}
		col := model.ColumnSchema{Name: column, Type: dataType, Nullable: nullable}
		if def.Valid {
			col.Default = def.String
		}
		t := &tables[len(tables)-1]
		t.Columns = append(t.Columns, col)
	}
	return tables, rows.Err()
}

func (si *Inspector) loadPrimaryKeys(ctx context.Context, index map[string]map[string]*model.ColumnSchema) error {
	rows, err := si.db.QueryContext(ctx, primaryKeysQuery, si.schema)
	if err != nil {
		return fmt.Errorf("list primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return fmt.Errorf("scan primary key: %w", err)
		}
		if c, ok := index[table][column]; ok {
			c.PrimaryKey = true
		}
	}
	return rows.Err()
}

func (si *Inspector) loadForeignKeys(ctx context.Context, index map[string]map[string]*model.ColumnSchema) ([]model.Relationship, error) {
	rows, err := si.db.QueryContext(ctx, foreignKeysQuery, si.schema)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	var rels []model.Relationship
	for rows.Next() {
		var table, column, refTable, refColumn string
		if err := rows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		ref := model.ForeignKeyRef{Table: refTable, Column: refColumn}
		if c, ok := index[table][column]; ok {
			c.ForeignKey = &ref
		}
		rels = append(rels, model.Relationship{From: table + "." + column, To: ref.String()})
	}
	return rels, rows.Err()
}
