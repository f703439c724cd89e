package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/cyclone-impact-service/internal/adapter/http"
	"github.com/couchcryptid/cyclone-impact-service/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	runs map[string]domain.RunSummary
	err  error
}

func (m *mockRuns) GetRun(_ context.Context, id string) (domain.RunSummary, error) {
	if m.err != nil {
		return domain.RunSummary{}, m.err
	}
	s, ok := m.runs[id]
	if !ok {
		return domain.RunSummary{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return s, nil
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("no scenario processed yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no scenario processed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRunsRouteAbsentWithoutLedger(t *testing.T) {
	rec := get(newTestServer(nil), "/runs/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsLookup(t *testing.T) {
	runs := &mockRuns{runs: map[string]domain.RunSummary{
		"run-1": {RunID: "run-1", StormName: "AMPHAN", Threshold: 1e6},
	}}
	srv := httpadapter.NewServer(":0", &mockReadiness{}, runs, slog.Default())

	t.Run("found", func(t *testing.T) {
		rec := get(srv, "/runs/run-1")
		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.RunSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "AMPHAN", got.StormName)
	})

	t.Run("missing", func(t *testing.T) {
		rec := get(srv, "/runs/run-2")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "run-2")
	})

	t.Run("ledger error", func(t *testing.T) {
		runs.err = errors.New("connection reset")
		defer func() { runs.err = nil }()

		rec := get(srv, "/runs/run-1")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}
