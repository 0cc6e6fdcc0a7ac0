package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/curvescope/internal/analysis"
)

// refreshTimeout bounds one scheduled analysis run
const refreshTimeout = 10 * time.Minute

// RefreshJob re-runs the full analysis so charts track newly published data
type RefreshJob struct {
	log     zerolog.Logger
	service *analysis.Service
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(service *analysis.Service, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		log:     log.With().Str("job", "refresh").Logger(),
		service: service,
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "refresh"
}

// Run executes one analysis run
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	report, err := j.service.Run(ctx)
	if err != nil {
		return fmt.Errorf("scheduled analysis run failed: %w", err)
	}

	j.log.Info().
		Str("run_id", report.RunID).
		Int("horizons", len(report.Horizons)).
		Msg("Scheduled refresh completed")
	return nil
}
