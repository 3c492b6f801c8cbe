// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package validate

import (
	"fmt"
	"sort"
)

// Shape tags the response types the client verifies.
type Shape string

const (
	QueryResult    Shape = "QueryResult"
	SchemaSnapshot Shape = "SchemaSnapshot"
	DatabaseSchema Shape = "DatabaseSchema"
	HealthSnapshot Shape = "HealthSnapshot"
	ConnectionTest Shape = "ConnectionTest"
)

var (
	databaseQueryNode = Object(
		Required("database", String()),
		Required("query_type", String()),
		Required("query", AnyOf(String(), Array(Object()))),
		Optional("parameters", Array(Any())),
		Optional("estimated_rows", Integer()),
		Optional("collection", String()),
	)

	queryPlanNode = Object(
		Required("databases", Array(String())),
		Required("queries", Array(databaseQueryNode)),
		Optional("join_strategy", String()),
		Optional("reasoning", String()),
		Optional("security_applied", Array(String())),
		Optional("estimated_cost", String()),
	)

	queryResultNode = Object(
		Required("data", Array(Object())),
		Required("metadata", Object(
			Required("query_plan", queryPlanNode),
			Required("execution_time_ms", Number()),
			Required("rows_returned", Integer()),
			Optional("gemini_tokens_used", Integer()),
			Required("trace_id", String()),
			Required("timestamp", String()),
			Optional("cached", Bool()),
		)),
	)

	foreignKeyNode = AnyOf(String(), Object(
		Required("table", String()),
		Required("column", String()),
	))

	columnNode = Object(
		Required("name", String()),
		Required("type", String()),
		Optional("nullable", Bool()),
		Optional("default", Any()),
		Optional("primary_key", Bool()),
		Optional("foreign_key", foreignKeyNode),
	)

	tableNode = Object(
		Optional("name", String()),
		Required("columns", Array(columnNode)),
		Optional("indexes", Array(Any())),
		Optional("row_count", Integer()),
	)

	fieldObjectNode = Object(
		Optional("name", String()),
		Optional("type", String()),
		Optional("required", Bool()),
		Optional("nullable", Bool()),
	)

	collectionNode = Object(
		Optional("name", String()),
		Optional("fields", AnyOf(
			Array(AnyOf(String(), fieldObjectNode)),
			MapOf(fieldObjectNode),
		)),
		Optional("indexes", Array(Any())),
		Optional("count", Integer()),
	)

	databaseSchemaNode = Object(
		Optional("name", String()),
		Optional("type", String()),
		Optional("tables", AnyOf(Array(tableNode), MapOf(tableNode))),
		Optional("collections", AnyOf(Array(collectionNode), MapOf(collectionNode))),
		Optional("relationships", Array(Object())),
	)

	schemaSnapshotNode = Object(
		Required("databases", MapOf(databaseSchemaNode)),
	)

	healthNode = Object(
		Required("status", String()),
		Optional("databases", MapOf(String())),
		Optional("message", String()),
		Optional("error", String()),
	)

	connectionResultNode = Object(
		Required("success", Bool()),
		Optional("error", String()),
		Optional("schema_preview", Object(
			Optional("database_name", String()),
			Optional("table_count", Integer()),
			Optional("tables", Array(Object(
				Required("name", String()),
				Optional("column_count", Integer()),
				Optional("columns", Array(String())),
			))),
			Optional("collection_count", Integer()),
			Optional("collections", Array(Object(
				Required("name", String()),
				Optional("field_count", Integer()),
				Optional("fields", Array(String())),
			))),
		)),
	)

	connectionTestNode = Object(
		Optional("postgres", connectionResultNode),
		Optional("mongodb", connectionResultNode),
	)
)

var shapes = map[Shape]*Node{
	QueryResult:    queryResultNode,
	SchemaSnapshot: schemaSnapshotNode,
	DatabaseSchema: databaseSchemaNode,
	HealthSnapshot: healthNode,
	ConnectionTest: connectionTestNode,
}

// Validate checks v against the named shape.
func Validate(shape Shape, v any) error {
	n, ok := shapes[shape]
	if !ok {
		panic(fmt.Sprintf("validate: unknown shape %q", shape))
	}
	return Check(n, v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
