// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "")

	m.ObserveCall("query", OutcomeSuccess, 120*time.Millisecond)
	m.ObserveCall("query", OutcomeSuccess, 80*time.Millisecond)
	m.ObserveCall("query", "api", time.Second)

	require.Equal(t, float64(2), testutil.ToFloat64(m.Requests.WithLabelValues("query", OutcomeSuccess)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.Requests.WithLabelValues("query", "api")))
	require.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestObserveRetry(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "")
	m.ObserveRetry("schemas")
	m.ObserveRetry("schemas")
	require.Equal(t, float64(2), testutil.ToFloat64(m.Retries.WithLabelValues("schemas")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCall("query", OutcomeSuccess, time.Second)
	m.ObserveRetry("query")
	require.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestRegistrationNames(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "dbrevel")

	m.ObserveCall("health", OutcomeSuccess, time.Millisecond)
	m.ObserveRetry("health")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["dbrevel_client_requests_total"])
	require.True(t, names["dbrevel_client_retries_total"])
	require.True(t, names["dbrevel_client_request_duration_seconds"])
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry(), "dbrevel")
	m.ObserveCall("query", OutcomeSuccess, time.Millisecond)

	p := filepath.Join(t.TempDir(), "dbrevel.prom")
	require.NoError(t, m.WriteTextfile(p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `dbrevel_client_requests_total{operation="query",outcome="success"} 1`)
}
