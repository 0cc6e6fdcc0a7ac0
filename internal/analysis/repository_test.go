package analysis

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/curvescope/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "runs.db"),
		Profile: database.ProfileCache,
		Name:    "runs",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db, zerolog.Nop())
	require.NoError(t, err)
	return repo
}

func testReport(runID string, generatedAt time.Time) *Report {
	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt,
		Sources:     []string{"DGS10", "DGS2"},
		MatrixRows:  1260,
		Horizons: []HorizonResult{
			{
				HorizonYears:    5,
				Rows:            1260,
				StartDate:       time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC),
				EndDate:         time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
				Eigenvalues:     []float64{1.8, 0.2},
				ExplainedRatios: []float64{0.9, 0.1},
				Weights: []ComponentWeights{
					{
						Component:      1,
						Eigenvalue:     1.8,
						ExplainedRatio: 0.9,
						Weights: []WeightPoint{
							{Label: "10Y", Weight: 0.71},
							{Label: "2Y", Weight: 0.70},
						},
					},
				},
				Projections: []ComponentProjection{
					{
						Component: 1,
						Points: []ProjectionPoint{
							{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Value: 0.42},
						},
					},
				},
			},
		},
		SkippedHorizons: []int{30},
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	original := testReport("run-1", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveRun(original))

	loaded, err := repo.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, original.RunID, loaded.RunID)
	assert.Equal(t, original.Sources, loaded.Sources)
	assert.Equal(t, original.SkippedHorizons, loaded.SkippedHorizons)
	require.Len(t, loaded.Horizons, 1)
	assert.Equal(t, original.Horizons[0].Eigenvalues, loaded.Horizons[0].Eigenvalues)
	assert.Equal(t, "10Y", loaded.Horizons[0].Weights[0].Weights[0].Label)
	assert.True(t, original.Horizons[0].EndDate.Equal(loaded.Horizons[0].EndDate))
}

func TestRepositoryLatestRun(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.LatestRun()
	require.ErrorIs(t, err, ErrNoRuns)

	require.NoError(t, repo.SaveRun(testReport("run-old", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, repo.SaveRun(testReport("run-new", time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC))))

	latest, err := repo.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "run-new", latest.RunID)
}

func TestRepositoryGetRunMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.GetRun("nope")
	require.ErrorIs(t, err, ErrNoRuns)
}

func TestRepositoryDuplicateRunID(t *testing.T) {
	repo := newTestRepository(t)

	report := testReport("run-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.SaveRun(report))
	require.Error(t, repo.SaveRun(report))
}

func TestRepositoryPruneRuns(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveRun(testReport("run-old", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, repo.SaveRun(testReport("run-new", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))))

	deleted, err := repo.PruneRuns(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetRun("run-old")
	require.ErrorIs(t, err, ErrNoRuns)

	latest, err := repo.LatestRun()
	require.NoError(t, err)
	assert.Equal(t, "run-new", latest.RunID)
}
