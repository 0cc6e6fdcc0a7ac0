package analysis

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/curvescope/internal/database"
)

// ErrNoRuns indicates that no analysis run has been persisted yet
var ErrNoRuns = errors.New("no analysis runs stored")

// Repository persists analysis reports in SQLite. Each run is a single
// msgpack blob; runs are immutable once written.
type Repository struct {
	db  *database.DB
	log zerolog.Logger
}

// NewRepository creates the runs repository and applies its schema
func NewRepository(db *database.DB, log zerolog.Logger) (*Repository, error) {
	repo := &Repository{
		db:  db,
		log: log.With().Str("component", "runs_repository").Logger(),
	}
	if err := repo.initSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		horizons INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_runs_created ON analysis_runs(created_at DESC);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize runs schema: %w", err)
	}
	return nil
}

// SaveRun stores one report
func (r *Repository) SaveRun(report *Report) error {
	payload, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", report.RunID, err)
	}

	_, err = r.db.Exec(
		"INSERT INTO analysis_runs (id, created_at, horizons, payload) VALUES (?, ?, ?, ?)",
		report.RunID, report.GeneratedAt.Unix(), len(report.Horizons), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.RunID, err)
	}

	r.log.Debug().
		Str("run_id", report.RunID).
		Int("payload_bytes", len(payload)).
		Msg("Persisted analysis run")
	return nil
}

// LatestRun returns the most recently generated report, or ErrNoRuns
func (r *Repository) LatestRun() (*Report, error) {
	row := r.db.QueryRow("SELECT payload FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT 1")
	return r.scanRun(row)
}

// GetRun returns the report with the given run id, or ErrNoRuns
func (r *Repository) GetRun(runID string) (*Report, error) {
	row := r.db.QueryRow("SELECT payload FROM analysis_runs WHERE id = ?", runID)
	return r.scanRun(row)
}

func (r *Repository) scanRun(row *sql.Row) (*Report, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("failed to read run: %w", err)
	}

	var report Report
	if err := msgpack.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode run payload: %w", err)
	}
	return &report, nil
}

// PruneRuns deletes runs generated before the cutoff and returns how many
// were removed
func (r *Repository) PruneRuns(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM analysis_runs WHERE created_at < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	if deleted > 0 {
		r.log.Info().Int64("deleted", deleted).Msg("Pruned old analysis runs")
	}
	return deleted, nil
}
