package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/curvescope/internal/analysis"
	"github.com/aristath/curvescope/internal/curve"
	"github.com/aristath/curvescope/internal/database"
	"github.com/aristath/curvescope/internal/events"
)

// memorySource serves series from memory
type memorySource struct {
	series map[string]curve.RawSeries
}

func (m *memorySource) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.series))
	for id := range m.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memorySource) Load(ctx context.Context, id string) (curve.RawSeries, error) {
	return m.series[id], nil
}

func testSeries(days int, base, step float64) curve.RawSeries {
	series := make(curve.RawSeries, days)
	for i := 0; i < days; i++ {
		series[i] = curve.Observation{
			Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Raw:  strconv.FormatFloat(base+float64(i)*step, 'f', -1, 64),
		}
	}
	return series
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "runs.db"),
		Profile: database.ProfileCache,
		Name:    "runs",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := analysis.NewRepository(db, zerolog.Nop())
	require.NoError(t, err)

	source := &memorySource{series: map[string]curve.RawSeries{
		"DGS2":  testSeries(12, 4.0, -0.01),
		"DGS10": testSeries(12, 3.9, 0.02),
	}}
	bus := events.NewBus()
	service := analysis.NewService(source, repo, bus, analysis.Config{
		Horizons:           []int{1, 30},
		TradingDaysPerYear: 5,
		Labels:             map[string]string{"DGS2": "2Y", "DGS10": "10Y"},
	}, zerolog.Nop())

	return New(Config{
		Port:    0,
		Log:     zerolog.Nop(),
		Service: service,
		Repo:    repo,
		Bus:     bus,
		DevMode: true,
	})
}

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "curvescope", health.Service)
}

func TestHandleLatestBeforeAnyRun(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/analysis/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/analysis/run")
	require.Equal(t, http.StatusOK, rec.Code)

	var run RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, 12, run.MatrixRows)
	assert.Equal(t, 1, run.Horizons)
	assert.Equal(t, []int{30}, run.SkippedHorizons)

	t.Run("latest returns the stored report", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/latest")
		require.Equal(t, http.StatusOK, rec.Code)

		var report analysis.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, run.RunID, report.RunID)
		assert.Equal(t, []string{"DGS10", "DGS2"}, report.Sources)
	})

	t.Run("weights for a computed horizon", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/1/weights")
		require.Equal(t, http.StatusOK, rec.Code)

		var weights []analysis.ComponentWeights
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &weights))
		require.Len(t, weights, 2)
		assert.Equal(t, 1, weights[0].Component)
		require.Len(t, weights[0].Weights, 2)
		assert.Equal(t, "10Y", weights[0].Weights[0].Label)
	})

	t.Run("projections for a computed horizon", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/1/projections")
		require.Equal(t, http.StatusOK, rec.Code)

		var projections []analysis.ComponentProjection
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &projections))
		require.Len(t, projections, 2)
		assert.Len(t, projections[0].Points, 5)
	})

	t.Run("skipped horizon is absent", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/30/weights")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unconfigured horizon is absent", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/7/projections")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed horizon is a bad request", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/analysis/abc/weights")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(s, http.MethodGet, "/api/analysis/-1/weights")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
