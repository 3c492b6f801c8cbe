// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/interceptor"
	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/validate"
)

const (
	pathQuery          = "/api/v1/query"
	pathSchemas        = "/api/v1/schema"
	pathTestConnection = "/api/v1/projects/test-connection"
	pathHealth         = "/health"
	pathDeepHealth     = "/health/deep"
)

// Query submits intent and returns rows as generic maps.
func (c *Client) Query(ctx context.Context, intent string, opts model.QueryOptions) (model.QueryResult[model.Row], error) {
	return QueryAs[model.Row](ctx, c, intent, opts)
}

// QueryAs submits intent and narrows each row into T.
//
// The intent is trimmed; an empty intent fails locally without any request.
// With opts.DryRun the backend plans but does not execute, so Data is empty.
func QueryAs[T any](ctx context.Context, c *Client, intent string, opts model.QueryOptions) (model.QueryResult[T], error) {
	trimmed := strings.TrimSpace(intent)
	if trimmed == "" {
		err := apperrors.NewValidation("intent", "intent must not be empty")
		c.metrics.ObserveCall("query", string(apperrors.Validation), 0)
		return model.QueryResult[T]{}, err
	}

	var res model.QueryResult[T]
	resp, err := c.execute(ctx, call{
		op:     "query",
		method: http.MethodPost,
		path:   pathQuery,
		payload: model.QueryRequest{
			Intent:  trimmed,
			DryRun:  opts.DryRun,
			Context: opts.Context,
		},
		shape: validate.QueryResult,
		decode: func(body any) (err error) {
			res, err = model.DecodeQueryResult[T](body)
			return err
		},
	})
	if err != nil {
		return model.QueryResult[T]{}, err
	}

	log := c.log.WithOperation("query").WithTrace(requestID(resp), res.Metadata.TraceID)
	if err := res.CheckRows(opts.DryRun); err != nil {
		log.Warnw("result violates row invariants", "dry_run", opts.DryRun, "error", err.Error())
	}
	if !res.Metadata.QueryPlan.Consistent() {
		log.Warnw("plan databases do not match its queries",
			"databases", res.Metadata.QueryPlan.Databases,
			"queried", res.Metadata.QueryPlan.QueryDatabases())
	}
	log.Debugw("query completed",
		"rows", len(res.Data),
		"execution_time_ms", res.Metadata.ExecutionTimeMs,
		"cached", res.Metadata.Cached)
	return res, nil
}

// GetSchemas fetches every connected database schema.
func (c *Client) GetSchemas(ctx context.Context) (model.SchemaSnapshot, error) {
	var snap model.SchemaSnapshot
	_, err := c.execute(ctx, call{
		op:     "schemas",
		method: http.MethodGet,
		path:   pathSchemas,
		shape:  validate.SchemaSnapshot,
		decode: func(body any) (err error) {
			snap, err = model.DecodeSchemaSnapshot(body)
			return err
		},
	})
	if err != nil {
		return model.SchemaSnapshot{}, err
	}
	return snap, nil
}

// GetSchema fetches one database schema by name.
func (c *Client) GetSchema(ctx context.Context, databaseName string) (model.DatabaseSchema, error) {
	name := strings.TrimSpace(databaseName)
	if name == "" {
		c.metrics.ObserveCall("schema", string(apperrors.Validation), 0)
		return model.DatabaseSchema{}, apperrors.NewValidation("database_name", "database name must not be empty")
	}

	var db model.DatabaseSchema
	_, err := c.execute(ctx, call{
		op:     "schema",
		method: http.MethodGet,
		path:   pathSchemas + "/" + url.PathEscape(name),
		shape:  validate.DatabaseSchema,
		decode: func(body any) (err error) {
			db, err = model.DecodeDatabaseSchema(name, body)
			return err
		},
	})
	if err != nil {
		return model.DatabaseSchema{}, err
	}
	return db, nil
}

// Health runs the shallow liveness check.
func (c *Client) Health(ctx context.Context) (model.HealthSnapshot, error) {
	return c.health(ctx, "health", pathHealth)
}

// DeepHealth asks the backend to probe its database adapters.
func (c *Client) DeepHealth(ctx context.Context) (model.HealthSnapshot, error) {
	return c.health(ctx, "deep_health", pathDeepHealth)
}

func (c *Client) health(ctx context.Context, op, path string) (model.HealthSnapshot, error) {
	var h model.HealthSnapshot
	_, err := c.execute(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   path,
		shape:  validate.HealthSnapshot,
		decode: func(body any) (err error) {
			h, err = model.DecodeHealth(body)
			return err
		},
	})
	if err != nil {
		return model.HealthSnapshot{}, err
	}
	return h, nil
}

// TestConnection asks the backend to probe the given database URLs, or the
// URLs saved on a project. It never changes stored configuration.
func (c *Client) TestConnection(ctx context.Context, targets model.ConnectionTargets) (model.ConnectionTestResult, error) {
	targets.ProjectID = strings.TrimSpace(targets.ProjectID)
	targets.PostgresURL = strings.TrimSpace(targets.PostgresURL)
	targets.MongoDBURL = strings.TrimSpace(targets.MongoDBURL)
	if targets.Empty() {
		c.metrics.ObserveCall("test_connection", string(apperrors.Validation), 0)
		return model.ConnectionTestResult{}, apperrors.NewValidation("targets",
			"provide a project id or at least one of postgres_url, mongodb_url")
	}

	var res model.ConnectionTestResult
	_, err := c.execute(ctx, call{
		op:      "test_connection",
		method:  http.MethodPost,
		path:    pathTestConnection,
		payload: targets,
		shape:   validate.ConnectionTest,
		bearer:  true,
		decode: func(body any) (err error) {
			res, err = model.DecodeConnectionTest(body)
			return err
		},
	})
	if err != nil {
		return model.ConnectionTestResult{}, err
	}
	return res, nil
}

func requestID(resp *interceptor.Response) string {
	if resp.Request == nil || resp.Request.Header == nil {
		return ""
	}
	return resp.Request.Header.Get(HeaderRequestID)
}
