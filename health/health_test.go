package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/pool"
)

func newService(t *testing.T, upstreamStatus int) (*http.ServeMux, *pool.Pool) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(upstreamStatus)
	}))
	t.Cleanup(upstream.Close)

	b, err := pool.NewBuilder(2)
	require.NoError(t, err)
	p := b.HealthCheck(caller.Get(upstream.URL)).Build(context.Background())
	t.Cleanup(func() { _ = p.Close() })

	mux := http.NewServeMux()
	New(p, time.Second).RegisterRoutes(mux)
	return mux, p
}

func TestHealthz(t *testing.T) {
	mux, _ := newService(t, http.StatusOK)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var report pool.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.Healthy)
	assert.Len(t, report.Slots, 2)
}

func TestHealthzUnhealthy(t *testing.T) {
	mux, _ := newService(t, http.StatusBadGateway)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newService(t, http.StatusOK)

	for _, path := range []string{"/healthz", "/stats"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestStats(t *testing.T) {
	mux, p := newService(t, http.StatusOK)
	p.Check(context.Background())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Size)
	assert.Equal(t, int64(2), resp.Probes)
	assert.Equal(t, 2, resp.Latency.Samples)
}

func TestSummarize(t *testing.T) {
	var probes []pool.Probe
	for i := 1; i <= 100; i++ {
		probes = append(probes, pool.Probe{Latency: time.Duration(i) * time.Millisecond})
	}
	probes = append(probes, pool.Probe{Latency: time.Hour, Err: "timeout"})

	summary := Summarize(probes)
	assert.Equal(t, 100, summary.Samples)
	assert.InDelta(t, 50, summary.P50, 1)
	assert.InDelta(t, 90, summary.P90, 1)
	assert.InDelta(t, 99, summary.P99, 1)
	assert.Equal(t, float64(100), summary.Max)

	assert.Equal(t, LatencySummary{}, Summarize(nil))
}
