package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentloop/rentloop-backend/internal/dispatcher"
	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

type fakeSnapshotter struct {
	snapshot dispatcher.Snapshot
}

func (f *fakeSnapshotter) HealthSnapshot(ctx context.Context) dispatcher.Snapshot {
	return f.snapshot
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func testServerParams(deps map[string]Pinger, snap Snapshotter) ServerParams {
	return ServerParams{
		Config: &config.Config{
			App: config.AppConfig{Env: "dev", Port: "0"},
		},
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Dispatcher: snap,
		Deps:       deps,
		Registry:   prometheus.NewRegistry(),
	}
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testServerParams(nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dev", rec.Header().Get("X-Rentloop-Env"))
	assert.Contains(t, rec.Body.String(), `"live"`)
}

func TestHealthReadyChecksDependencies(t *testing.T) {
	deps := map[string]Pinger{"database": &fakePinger{}}
	router := NewRouter(testServerParams(deps, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	deps["database"] = &fakePinger{err: errors.New("connection refused")}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unreachable")
}

func TestDispatcherStatusReturnsSnapshot(t *testing.T) {
	snap := &fakeSnapshotter{
		snapshot: dispatcher.Snapshot{
			Running: true,
			Counters: dispatcher.Counters{
				ItemsProcessed: 42,
				ItemsDelivered: 40,
			},
			StoreError: "database down",
		},
	}
	router := NewRouter(testServerParams(nil, snap))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/dispatcher", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data dispatcher.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Running)
	assert.Equal(t, int64(42), body.Data.Counters.ItemsProcessed)
	assert.Equal(t, "database down", body.Data.StoreError)
}

func TestDispatcherStatusAbsentWithoutWorker(t *testing.T) {
	router := NewRouter(testServerParams(nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/dispatcher", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	params := testServerParams(nil, nil)
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentloop_test_total",
		Help: "test counter",
	})
	params.Registry.MustRegister(counter)
	counter.Inc()

	router := NewRouter(params)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rentloop_test_total 1")
}
