// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

// HealthSnapshot is returned by /health and /health/deep. The shallow check
// only reports Status.
type HealthSnapshot struct {
	Status    string            `json:"status"`
	Databases map[string]string `json:"databases,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Healthy reports whether the service declared itself healthy.
func (h HealthSnapshot) Healthy() bool { return h.Status == "healthy" }

// ConnectionTargets selects what test-connection probes: either a saved
// project or explicit URLs.
type ConnectionTargets struct {
	ProjectID   string `json:"project_id,omitempty"`
	PostgresURL string `json:"postgres_url,omitempty"`
	MongoDBURL  string `json:"mongodb_url,omitempty"`
}

// Empty reports whether no target was provided.
func (t ConnectionTargets) Empty() bool {
	return t.ProjectID == "" && t.PostgresURL == "" && t.MongoDBURL == ""
}

// ConnectionTestResult holds one entry per probed database.
type ConnectionTestResult struct {
	Postgres *ConnectionResult `json:"postgres,omitempty"`
	MongoDB  *ConnectionResult `json:"mongodb,omitempty"`
}

// Results returns the non-nil entries keyed by database kind.
func (r ConnectionTestResult) Results() map[string]*ConnectionResult {
	out := make(map[string]*ConnectionResult, 2)
	if r.Postgres != nil {
		out["postgres"] = r.Postgres
	}
	if r.MongoDB != nil {
		out["mongodb"] = r.MongoDB
	}
	return out
}

type ConnectionResult struct {
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	SchemaPreview *SchemaPreview `json:"schema_preview,omitempty"`
}

// SchemaPreview summarises the first tables or collections of a database.
type SchemaPreview struct {
	DatabaseName    string              `json:"database_name"`
	TableCount      int                 `json:"table_count,omitempty"`
	Tables          []TablePreview      `json:"tables,omitempty"`
	CollectionCount int                 `json:"collection_count,omitempty"`
	Collections     []CollectionPreview `json:"collections,omitempty"`
}

type TablePreview struct {
	Name        string   `json:"name"`
	ColumnCount int      `json:"column_count"`
	Columns     []string `json:"columns"`
}

type CollectionPreview struct {
	Name       string   `json:"name"`
	FieldCount int      `json:"field_count"`
	Fields     []string `json:"fields"`
}
