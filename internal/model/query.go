// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the request and response types exchanged with the
// DbRevel backend, along with decoding from validated JSON.
package model

import (
	"fmt"
	"time"

	apperrors "dbrevel/cli/internal/errors"
)

// QueryType identifies the dialect of a planned query.
type QueryType string

const (
	QueryTypeSQL      QueryType = "sql"
	QueryTypeDocument QueryType = "mongodb"
	QueryTypeCrossDB  QueryType = "cross-db"
)

// IsDocument reports whether the query is an aggregation pipeline.
func (q QueryType) IsDocument() bool {
	return q == QueryTypeDocument || q == "document"
}

// QueryOptions tunes a single query call. Cancellation travels on the context.
type QueryOptions struct {
	// DryRun asks for the plan only; nothing is executed.
	DryRun bool
	// Context is forwarded untouched for row-level security rules.
	Context map[string]any
}

// QueryRequest is the POST /api/v1/query body.
type QueryRequest struct {
	Intent  string         `json:"intent"`
	DryRun  bool           `json:"dry_run"`
	Context map[string]any `json:"context"`
}

// DatabaseQuery is one statement of a plan.
type DatabaseQuery struct {
	Database  string    `json:"database"`
	QueryType QueryType `json:"query_type"`
	// Query is either a SQL string or a pipeline ([]any of stage objects).
	Query         any    `json:"query"`
	Parameters    []any  `json:"parameters,omitempty"`
	EstimatedRows *int   `json:"estimated_rows,omitempty"`
	Collection    string `json:"collection,omitempty"`
}

// SQL returns the literal query text when Query is a string.
func (q DatabaseQuery) SQL() (string, bool) {
	s, ok := q.Query.(string)
	return s, ok
}

// Pipeline returns the aggregation stages when Query is a stage list.
func (q DatabaseQuery) Pipeline() ([]map[string]any, bool) {
	switch stages := q.Query.(type) {
	case []map[string]any:
		return stages, true
	case []any:
		out := make([]map[string]any, 0, len(stages))
		for _, s := range stages {
			m, ok := s.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}

// QueryPlan is the backend's execution plan for an intent.
type QueryPlan struct {
	Databases       []string        `json:"databases"`
	Queries         []DatabaseQuery `json:"queries"`
	JoinStrategy    string          `json:"join_strategy,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
	SecurityApplied []string        `json:"security_applied,omitempty"`
	EstimatedCost   string          `json:"estimated_cost,omitempty"`
}

// QueryDatabases returns the distinct databases referenced by Queries, in
// first-seen order.
func (p QueryPlan) QueryDatabases() []string {
	seen := make(map[string]bool, len(p.Queries))
	var out []string
	for _, q := range p.Queries {
		if !seen[q.Database] {
			seen[q.Database] = true
			out = append(out, q.Database)
		}
	}
	return out
}

// Consistent reports whether Databases holds exactly the distinct databases
// of Queries.
func (p QueryPlan) Consistent() bool {
	want := p.QueryDatabases()
	if len(want) != len(p.Databases) {
		return false
	}
	have := make(map[string]bool, len(p.Databases))
	for _, d := range p.Databases {
		if have[d] {
			return false
		}
		have[d] = true
	}
	for _, d := range want {
		if !have[d] {
			return false
		}
	}
	return true
}

// QueryMetadata carries provenance for a result.
type QueryMetadata struct {
	QueryPlan       QueryPlan `json:"query_plan"`
	ExecutionTimeMs float64   `json:"execution_time_ms"`
	RowsReturned    int       `json:"rows_returned"`
	TokensUsed      int       `json:"gemini_tokens_used,omitempty"`
	TraceID         string    `json:"trace_id"`
	Timestamp       string    `json:"timestamp"`
	Cached          bool      `json:"cached"`
}

// Time parses Timestamp. The backend emits ISO-8601 with or without a zone.
func (m QueryMetadata) Time() (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, m.Timestamp); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", m.Timestamp)
}

// Row is an untyped result row.
type Row = map[string]any

// QueryResult is the outcome of a query call.
type QueryResult[T any] struct {
	Data     []T           `json:"data"`
	Metadata QueryMetadata `json:"metadata"`
}

// CheckRows verifies the row-count invariants: dry runs carry no data, and
// executed results report exactly len(Data) rows.
func (r QueryResult[T]) CheckRows(dryRun bool) error {
	if dryRun {
		if len(r.Data) != 0 {
			return apperrors.NewValidation("data", fmt.Sprintf("dry run returned %d rows", len(r.Data)))
		}
		return nil
	}
	if r.Metadata.RowsReturned != len(r.Data) {
		return apperrors.NewValidation("metadata.rows_returned",
			fmt.Sprintf("reported %d rows, received %d", r.Metadata.RowsReturned, len(r.Data)))
	}
	return nil
}
