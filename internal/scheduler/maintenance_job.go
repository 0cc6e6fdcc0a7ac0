package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/curvescope/internal/analysis"
	"github.com/aristath/curvescope/internal/database"
)

// MaintenanceJob prunes old runs and checkpoints the runs database WAL
type MaintenanceJob struct {
	log       zerolog.Logger
	repo      *analysis.Repository
	db        *database.DB
	retention time.Duration
}

// NewMaintenanceJob creates a new maintenance job. retention controls how
// long past runs are kept.
func NewMaintenanceJob(repo *analysis.Repository, db *database.DB, retention time.Duration, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		log:       log.With().Str("job", "maintenance").Logger(),
		repo:      repo,
		db:        db,
		retention: retention,
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run prunes expired runs and truncates the WAL
func (j *MaintenanceJob) Run() error {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.repo.PruneRuns(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("failed to checkpoint runs database: %w", err)
	}

	j.log.Info().
		Int64("deleted_runs", deleted).
		Time("cutoff", cutoff).
		Msg("Maintenance completed")
	return nil
}
