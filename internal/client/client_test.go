// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbrevel/cli/internal/config"
	apperrors "dbrevel/cli/internal/errors"
	"dbrevel/cli/internal/interceptor"
	"dbrevel/cli/internal/logger"
	"dbrevel/cli/internal/metrics"
	"dbrevel/cli/internal/model"
	"dbrevel/cli/internal/retry"
)

const testKey = "dbr_test_4f9a2c71"

func resultJSON(data string, rows int) string {
	return fmt.Sprintf(`{
	  "data": %s,
	  "metadata": {
	    "query_plan": {
	      "databases": ["postgres"],
	      "queries": [{"database": "postgres", "query_type": "sql", "query": "SELECT id FROM users WHERE city = $1", "parameters": ["Lagos"]}]
	    },
	    "execution_time_ms": 8.1,
	    "rows_returned": %d,
	    "trace_id": "trace-123",
	    "timestamp": "2025-06-01T10:00:00Z"
	  }
	}`, data, rows)
}

// recorder captures what the fake backend received.
type recorder struct {
	mu      sync.Mutex
	calls   atomic.Int32
	bodies  []string
	headers []http.Header
	paths   []string
}

func (r *recorder) record(req *http.Request) int {
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.bodies = append(r.bodies, string(b))
	r.headers = append(r.headers, req.Header.Clone())
	r.paths = append(r.paths, req.URL.EscapedPath())
	r.mu.Unlock()
	return int(r.calls.Add(1))
}

func serve(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int)) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := rec.record(r)
		handler(w, r, call)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func fastRetry() *retry.Policy {
	p := retry.DefaultPolicy()
	p.RetryDelay = time.Millisecond
	p.MaxRetryDelay = 5 * time.Millisecond
	return &p
}

func newClient(t *testing.T, baseURL string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{BaseURL: baseURL, APIKey: testKey, Retry: fastRetry(), Timeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestQuerySendsTrimmedIntent(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1}]`, 1))
	})
	c := newClient(t, srv.URL)

	res, err := c.Query(context.Background(), "  Get all users from Lagos \n", model.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 1.0, res.Data[0]["id"])
	assert.Equal(t, "trace-123", res.Metadata.TraceID)

	require.Equal(t, int32(1), rec.calls.Load())
	assert.Equal(t, `{"intent":"Get all users from Lagos","dry_run":false,"context":null}`, rec.bodies[0])
	assert.Equal(t, "/api/v1/query", rec.paths[0])

	h := rec.headers[0]
	assert.Equal(t, testKey, h.Get(HeaderProjectKey))
	assert.Equal(t, DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	id, err := uuid.Parse(h.Get(HeaderRequestID))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestQueryDryRun(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[]`, 0))
	})
	c := newClient(t, srv.URL)

	res, err := c.Query(context.Background(), "Get all users from Lagos", model.QueryOptions{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.NotNil(t, res.Data)
	assert.Equal(t, `{"intent":"Get all users from Lagos","dry_run":true,"context":null}`, rec.bodies[0])
}

func TestQueryForwardsContext(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[]`, 0))
	})
	c := newClient(t, srv.URL)

	_, err := c.Query(context.Background(), "orders", model.QueryOptions{Context: map[string]any{"tenant": "acme"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"orders","dry_run":false,"context":{"tenant":"acme"}}`, rec.bodies[0])
}

func TestQueryRejectsBlankIntentWithoutNetwork(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[]`, 0))
	})
	c := newClient(t, srv.URL)

	for _, intent := range []string{"", "   ", "\t\n"} {
		_, err := c.Query(context.Background(), intent, model.QueryOptions{})
		e, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.Validation, e.Kind)
		assert.Equal(t, "intent", e.Field)
	}
	assert.Equal(t, int32(0), rec.calls.Load())
}

func TestQueryRetriesServerErrors(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call <= 2 {
			writeJSON(w, http.StatusServiceUnavailable, `{"detail":"warming up"}`)
			return
		}
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1}]`, 1))
	})
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "dbrevel")
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Metrics = m })

	res, err := c.Query(context.Background(), "Get all users from Lagos", model.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, int32(3), rec.calls.Load())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Retries.WithLabelValues("query")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("query", metrics.OutcomeSuccess)))
}

func TestQueryFailsFastOnClientErrors(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
				writeJSON(w, status, `{"detail":"nope"}`)
			})
			c := newClient(t, srv.URL)

			_, err := c.Query(context.Background(), "Get all users from Lagos", model.QueryOptions{})
			e, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.API, e.Kind)
			assert.Equal(t, status, e.Status)
			assert.Equal(t, "nope", e.Message)
			assert.Equal(t, int32(1), rec.calls.Load())
		})
	}
}

func TestQuerySurfacesLastErrorWhenExhausted(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusBadGateway, fmt.Sprintf(`{"detail":"attempt %d"}`, call))
	})
	c := newClient(t, srv.URL)

	_, err := c.Query(context.Background(), "x", model.QueryOptions{})
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, e.Status)
	assert.Equal(t, "attempt 4", e.Message)
	assert.Equal(t, int32(4), rec.calls.Load())
}

func TestQueryRejectsMalformedResult(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"data": [], "metadata": {"query_plan": {"databases": [], "queries": []}, "execution_time_ms": 1, "rows_returned": 0, "timestamp": "2025-06-01T10:00:00Z"}}`)
	})
	c := newClient(t, srv.URL)

	_, err := c.Query(context.Background(), "x", model.QueryOptions{})
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.Validation, e.Kind)
	assert.Equal(t, "metadata.trace_id", e.Field)
	assert.Equal(t, int32(1), rec.calls.Load(), "validation failures are not retried")
}

func TestQueryRetriesTimeouts(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		writeJSON(w, http.StatusOK, resultJSON(`[]`, 0))
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })

	_, err := c.Query(context.Background(), "x", model.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), rec.calls.Load())
}

func TestQueryCancellationStopsRetries(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := newClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := c.Query(ctx, "x", model.QueryOptions{})
	assert.True(t, apperrors.Is(err, apperrors.Cancelled), "got %v", err)
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestQueryAsStruct(t *testing.T) {
	type user struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
	}
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1, "email": "ada@example.com"}, {"id": 2, "email": "tunde@example.com"}]`, 2))
	})
	c := newClient(t, srv.URL)

	res, err := QueryAs[user](context.Background(), c, "users", model.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []user{{1, "ada@example.com"}, {2, "tunde@example.com"}}, res.Data)
}

func TestQueryLogsRowMismatchWithoutLeakingKey(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1}]`, 5))
	})
	var buf bytes.Buffer
	log := logger.NewWithWriter(&config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Logger = log })

	res, err := c.Query(context.Background(), "x", model.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Contains(t, buf.String(), "result violates row invariants")
	assert.Contains(t, buf.String(), `"trace_id":"trace-123"`)
	assert.NotContains(t, buf.String(), testKey)
}

func TestInterceptorsRunAroundCall(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		if r.Header.Get("X-Tenant") == "" {
			writeJSON(w, http.StatusForbidden, `{"detail":"tenant header missing"}`)
			return
		}
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1}]`, 1))
	})
	c := newClient(t, srv.URL)

	var order []string
	c.UseRequestInterceptor(func(ctx context.Context, req *interceptor.Request) (*interceptor.Request, error) {
		order = append(order, "request")
		next := req.Clone()
		next.Header.Set("X-Tenant", "acme")
		return next, nil
	})
	c.UseResponseInterceptor(func(ctx context.Context, resp *interceptor.Response) (*interceptor.Response, error) {
		order = append(order, fmt.Sprintf("response:%d:%d", resp.StatusCode, resp.Attempts))
		return resp, nil
	})
	c.UseErrorInterceptor(func(ctx context.Context, req *interceptor.Request, err error) error {
		order = append(order, "error")
		return err
	})

	_, err := c.Query(context.Background(), "x", model.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"request", "response:200:1"}, order)
	assert.Equal(t, "acme", rec.headers[0].Get("X-Tenant"))

	c.ClearInterceptors()
	order = nil
	_, err = c.Query(context.Background(), "x", model.QueryOptions{})
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))
	assert.Empty(t, order)
	assert.Equal(t, testKey, rec.headers[1].Get(HeaderProjectKey), "built-in headers survive Clear")
}

func TestErrorInterceptorEnrichesButCannotSwallow(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Database 'x' not found"}`)
	})
	c := newClient(t, srv.URL)

	var seen error
	c.UseErrorInterceptor(func(ctx context.Context, req *interceptor.Request, err error) error {
		seen = err
		return nil
	})
	c.UseErrorInterceptor(func(ctx context.Context, req *interceptor.Request, err error) error {
		return fmt.Errorf("%s %s: %w", req.Method, req.Operation, err)
	})

	_, err := c.GetSchema(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(seen))
	assert.Contains(t, err.Error(), "GET schema:")
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestErrorInterceptorReplacementKeepsKind(t *testing.T) {
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusNotFound, `{"detail":"Database 'x' not found"}`)
	})
	c := newClient(t, srv.URL)

	lookup := stderrors.New("lookup failed")
	c.UseErrorInterceptor(func(ctx context.Context, req *interceptor.Request, err error) error {
		return lookup
	})

	_, err := c.GetSchema(context.Background(), "x")
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.API, e.Kind)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.ErrorIs(t, err, lookup)
}

func TestDecodeFailureRunsErrorChain(t *testing.T) {
	type user struct {
		ID int `json:"id"`
	}
	srv, _ := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": "abc"}]`, 1))
	})
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "dbrevel")
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.Metrics = m })

	var seen []error
	c.UseErrorInterceptor(func(ctx context.Context, req *interceptor.Request, err error) error {
		seen = append(seen, err)
		return nil
	})

	_, err := QueryAs[user](context.Background(), c, "users", model.QueryOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.Validation))
	require.Len(t, seen, 1)
	assert.Same(t, seen[0], err)

	assert.Equal(t, float64(0), testutil.ToFloat64(m.Requests.WithLabelValues("query", metrics.OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("query", string(apperrors.Validation))))
}

func TestBrokenInterceptorFailsDeterministically(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
	})
	c := newClient(t, srv.URL)
	c.UseRequestInterceptor(func(ctx context.Context, req *interceptor.Request) (*interceptor.Request, error) {
		next := req.Clone()
		next.URL = "not a url"
		return next, nil
	})

	_, err := c.Health(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.Validation))

	c.ClearInterceptors()
	c.UseRequestInterceptor(func(ctx context.Context, req *interceptor.Request) (*interceptor.Request, error) {
		return nil, stderrors.New("no token")
	})
	_, err = c.Health(context.Background())
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.Validation, e.Kind)
	assert.EqualError(t, e.Unwrap(), "no token")

	assert.Equal(t, int32(0), rec.calls.Load())
}

func TestGetSchemas(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"databases": {
		  "postgres": {"name": "postgres", "type": "postgresql", "tables": [{"name": "users", "columns": [
		    {"name": "id", "type": "integer", "nullable": false},
		    {"name": "email", "type": "varchar", "nullable": false}
		  ]}]},
		  "mongodb": {"name": "mongodb", "type": "mongodb", "collections": [{"name": "reviews", "fields": ["_id", "user_id", "rating"]}]}
		}}`)
	})
	c := newClient(t, srv.URL)

	snap, err := c.GetSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/schema", rec.paths[0])
	assert.Equal(t, model.KindRelational, snap.Databases["postgres"].Kind())
	assert.Equal(t, model.KindDocument, snap.Databases["mongodb"].Kind())
	assert.Len(t, snap.Databases["mongodb"].Collections[0].Fields, 3)
}

func TestGetSchemaEscapesName(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{"type": "postgres", "tables": [{"name": "t", "columns": []}]}`)
	})
	c := newClient(t, srv.URL)

	db, err := c.GetSchema(context.Background(), "sales db/eu")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/schema/sales%20db%2Feu", rec.paths[0])
	assert.Equal(t, "sales db/eu", db.Name)

	_, err = c.GetSchema(context.Background(), "  ")
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "database_name", e.Field)
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestHealthEndpoints(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		switch r.URL.Path {
		case "/health":
			writeJSON(w, http.StatusOK, `{"status":"healthy"}`)
		case "/health/deep":
			writeJSON(w, http.StatusOK, `{"status":"unhealthy","databases":{"postgres":"healthy","mongodb":"unhealthy"}}`)
		default:
			http.NotFound(w, r)
		}
	})
	c := newClient(t, srv.URL)

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
	assert.Empty(t, h.Databases)

	deep, err := c.DeepHealth(context.Background())
	require.NoError(t, err)
	assert.False(t, deep.Healthy())
	assert.Equal(t, "unhealthy", deep.Databases["mongodb"])
	assert.Equal(t, []string{"/health", "/health/deep"}, rec.paths)
}

func TestTestConnection(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, `{
		  "postgres": {"success": true, "error": null, "schema_preview": {"database_name": "shop", "table_count": 1, "tables": [{"name": "users", "column_count": 2, "columns": ["id", "email"]}]}},
		  "mongodb": null
		}`)
	})
	c := newClient(t, srv.URL, func(cfg *Config) { cfg.AccessToken = "jwt-abc" })

	res, err := c.TestConnection(context.Background(), model.ConnectionTargets{PostgresURL: " postgres://u:p@db/shop "})
	require.NoError(t, err)
	require.NotNil(t, res.Postgres)
	assert.True(t, res.Postgres.Success)
	assert.Equal(t, "shop", res.Postgres.SchemaPreview.DatabaseName)
	assert.Nil(t, res.MongoDB)

	assert.Equal(t, "/api/v1/projects/test-connection", rec.paths[0])
	assert.Equal(t, "Bearer jwt-abc", rec.headers[0].Get("Authorization"))
	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(rec.bodies[0]), &sent))
	assert.Equal(t, map[string]any{"postgres_url": "postgres://u:p@db/shop"}, sent)

	_, err = c.TestConnection(context.Background(), model.ConnectionTargets{PostgresURL: "  "})
	assert.True(t, apperrors.Is(err, apperrors.Validation))
	assert.Equal(t, int32(1), rec.calls.Load())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "api_key", e.Field)

	_, err = New(Config{APIKey: "k", BaseURL: "api.dbrevel.io"})
	e, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "base_url", e.Field)

	_, err = New(Config{APIKey: "k", Timeout: -time.Second})
	assert.True(t, apperrors.Is(err, apperrors.Validation))

	c, err := New(Config{APIKey: "k", BaseURL: "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.BaseURL())

	c, err = New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestConcurrentQueriesAreIndependent(t *testing.T) {
	srv, rec := serve(t, func(w http.ResponseWriter, r *http.Request, call int) {
		writeJSON(w, http.StatusOK, resultJSON(`[{"id": 1}]`, 1))
	})
	c := newClient(t, srv.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Query(context.Background(), fmt.Sprintf("intent %d", i), model.QueryOptions{})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(8), rec.calls.Load())

	ids := make(map[string]bool)
	for _, h := range rec.headers {
		ids[h.Get(HeaderRequestID)] = true
	}
	assert.Len(t, ids, 8, "every request carries its own id")
}
