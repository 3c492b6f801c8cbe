// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrevel/cli/internal/model"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func intPtr(n int) *int { return &n }

func samplePlan() model.QueryPlan {
	return model.QueryPlan{
		Databases:       []string{"postgres", "mongo"},
		JoinStrategy:    "application_join",
		EstimatedCost:   "low",
		SecurityApplied: []string{"project_scope"},
		Reasoning:       "Users live in postgres, orders in mongo.",
		Queries: []model.DatabaseQuery{
			{
				Database:      "postgres",
				QueryType:     model.QueryTypeSQL,
				Query:         "SELECT id, email\nFROM users\nWHERE city = $1",
				Parameters:    []any{"Lagos"},
				EstimatedRows: intPtr(10),
			},
			{
				Database:   "mongo",
				QueryType:  model.QueryTypeDocument,
				Collection: "orders",
				Query: []any{
					map[string]any{"$match": map[string]any{"user_id": map[string]any{"$in": []any{}}}},
					map[string]any{"$limit": 100.0},
				},
			},
		},
	}
}

func TestResultTableGolden(t *testing.T) {
	res := model.QueryResult[model.Row]{
		Data: []model.Row{
			{"id": 1.0, "name": "Ada Lovelace", "city": "Lagos"},
			{"id": 2.0, "name": "東京太郎", "city": nil, "tags": []any{"a", "b"}},
		},
		Metadata: model.QueryMetadata{ExecutionTimeMs: 12.5, RowsReturned: 2, TraceID: "trace-1", Cached: true},
	}

	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatTable, res, ResultOptions{}))
	newGoldie(t).Assert(t, "result_table", buf.Bytes())
}

func TestResultDryRunGolden(t *testing.T) {
	res := model.QueryResult[model.Row]{
		Data:     []model.Row{},
		Metadata: model.QueryMetadata{QueryPlan: samplePlan()},
	}

	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatTable, res, ResultOptions{DryRun: true}))
	newGoldie(t).Assert(t, "result_dry_run", buf.Bytes())
}

func TestSchemaGolden(t *testing.T) {
	snap := model.SchemaSnapshot{Databases: map[string]model.DatabaseSchema{
		"postgres": {Tables: []model.TableSchema{
			{Name: "users", Columns: []model.ColumnSchema{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "email", Type: "text", Nullable: true},
			}},
			{Name: "orders", Columns: []model.ColumnSchema{
				{Name: "id", Type: "bigint", PrimaryKey: true},
				{Name: "user_id", Type: "integer", ForeignKey: &model.ForeignKeyRef{Table: "users", Column: "id"}},
			}},
		}},
		"mongo": {Collections: []model.CollectionSchema{
			{Name: "orders", Fields: []model.FieldSchema{
				{Name: "_id", Type: "objectId", Required: true},
				{Name: "total", Type: "double"},
			}},
		}},
		"empty": {},
	}}

	var buf bytes.Buffer
	require.NoError(t, Schema(&buf, snap))
	newGoldie(t).Assert(t, "schema", buf.Bytes())
}

func TestHealthGolden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Health(&buf, model.HealthSnapshot{
		Status:    "healthy",
		Databases: map[string]string{"postgres": "connected", "mongodb": "connected"},
		Message:   "All databases reachable",
	}))
	newGoldie(t).Assert(t, "health", buf.Bytes())
}

func TestConnectionTestGolden(t *testing.T) {
	res := model.ConnectionTestResult{
		Postgres: &model.ConnectionResult{Success: true, SchemaPreview: &model.SchemaPreview{
			DatabaseName: "shop",
			TableCount:   12,
			Tables: []model.TablePreview{
				{Name: "users", ColumnCount: 7, Columns: []string{"id", "email", "name", "city", "created_at"}},
				{Name: "orders", ColumnCount: 3, Columns: []string{"id", "user_id", "total"}},
			},
		}},
		MongoDB: &model.ConnectionResult{Error: "Connection refused - check host and port"},
	}

	var buf bytes.Buffer
	require.NoError(t, ConnectionTest(&buf, res))
	newGoldie(t).Assert(t, "connection_test", buf.Bytes())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TEXT": FormatTable, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FormatYAML, model.HealthSnapshot{Status: "ok", Databases: map[string]string{"pg": "up"}}))
	assert.Equal(t, "databases:\n  pg: up\nstatus: ok\n", buf.String())

	buf.Reset()
	require.NoError(t, Encode(&buf, FormatJSON, map[string]any{"sql": "a < b"}))
	assert.Equal(t, "{\n  \"sql\": \"a \\u003c b\"\n}\n", buf.String())

	assert.Error(t, Encode(&buf, FormatTable, 1))
}

func TestResultStructuredFormats(t *testing.T) {
	res := model.QueryResult[model.Row]{
		Data:     []model.Row{{"id": 1.0}},
		Metadata: model.QueryMetadata{RowsReturned: 1, TraceID: "t"},
	}
	var buf bytes.Buffer
	require.NoError(t, Result(&buf, FormatYAML, res, ResultOptions{}))
	assert.Contains(t, buf.String(), "rows_returned: 1")
	assert.Contains(t, buf.String(), "trace_id: t")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"plain", "plain"},
		{"two\nlines", "two lines"},
		{3.0, "3"},
		{3.25, "3.25"},
		{true, "true"},
		{map[string]any{"a": "<b>"}, `{"a":"<b>"}`},
		{strings.Repeat("x", 60), strings.Repeat("x", 39) + "…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "(1 row, 3 ms)", Summary(model.QueryMetadata{ExecutionTimeMs: 3}, 1))
	assert.Equal(t, "(0 rows, 0.5 ms, trace x)", Summary(model.QueryMetadata{ExecutionTimeMs: 0.5, TraceID: "x"}, 0))
}
