package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/andrewclelland/analyse-ml-fire-projections/internal/adapter/http"
	"github.com/andrewclelland/analyse-ml-fire-projections/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockRuns struct {
	run *domain.RunReport
}

func (m *mockRuns) LastRun() (domain.RunReport, bool) {
	if m.run == nil {
		return domain.RunReport{}, false
	}
	return *m.run, true
}

func newTestServer(readyErr error, run *domain.RunReport) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockRuns{run: run}, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("no reconciliation task has finished yet"), nil), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no reconciliation task has finished yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLatestRunNotFound(t *testing.T) {
	rec := get(t, newTestServer(nil, nil), "/runs/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestRunReturnsReport(t *testing.T) {
	run := &domain.RunReport{
		RunID:      "run-1",
		Tasks:      3,
		ByStatus:   map[domain.TaskStatus]int{domain.StatusUpdated: 2, domain.StatusFailed: 1},
		Extracted:  42,
		StartedAt:  time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, time.March, 1, 12, 5, 0, 0, time.UTC),
	}
	rec := get(t, newTestServer(nil, run), "/runs/latest")

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, *run, got)
}
