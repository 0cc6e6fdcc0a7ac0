package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/curvescope/internal/curve"
	"github.com/aristath/curvescope/internal/events"
	"github.com/aristath/curvescope/internal/loader"
	"github.com/aristath/curvescope/internal/pca"
)

// Config holds analysis pipeline configuration
type Config struct {
	Horizons           []int             // Horizon lengths in calendar years
	TradingDaysPerYear int               // Rows per horizon year (252 for daily data)
	Labels             map[string]string // Source id -> display label
	SmoothingPeriod    int               // SMA period for projection overlays (0 = off)
}

// Service runs the load -> align -> window -> PCA pipeline and persists
// the resulting reports
type Service struct {
	source loader.Source
	repo   *Repository
	bus    *events.Bus
	cfg    Config
	log    zerolog.Logger
}

// NewService creates the analysis service. repo and bus may be nil when
// persistence or eventing is not wired (tests).
func NewService(source loader.Source, repo *Repository, bus *events.Bus, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		repo:   repo,
		bus:    bus,
		cfg:    cfg,
		log:    log.With().Str("component", "analysis").Logger(),
	}
}

// Run executes one full analysis over all configured sources and horizons.
//
// Failure policy: a missing or unparseable source aborts the whole run (no
// matrix can be built without it); a horizon with insufficient history is
// skipped and the rest proceed. A horizon either yields a complete result
// or none at all.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()
	started := time.Now()

	s.publish(events.AnalysisStarted, map[string]interface{}{"run_id": runID})

	report, err := s.run(ctx, runID)
	if err != nil {
		s.publish(events.AnalysisFailed, map[string]interface{}{
			"run_id": runID,
			"error":  err.Error(),
		})
		return nil, err
	}

	if s.repo != nil {
		if saveErr := s.repo.SaveRun(report); saveErr != nil {
			// The report is still valid for the caller; persistence is
			// best effort.
			s.log.Error().Err(saveErr).Str("run_id", runID).Msg("Failed to persist analysis run")
		}
	}

	s.publish(events.AnalysisCompleted, map[string]interface{}{
		"run_id":           runID,
		"horizons":         len(report.Horizons),
		"skipped_horizons": len(report.SkippedHorizons),
		"duration_ms":      time.Since(started).Milliseconds(),
	})

	s.log.Info().
		Str("run_id", runID).
		Int("horizons", len(report.Horizons)).
		Int("skipped", len(report.SkippedHorizons)).
		Dur("elapsed", time.Since(started)).
		Msg("Analysis run completed")

	return report, nil
}

func (s *Service) run(ctx context.Context, runID string) (*Report, error) {
	ids, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list series sources: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no series sources available")
	}

	series := make(map[string]curve.RawSeries, len(ids))
	for _, id := range ids {
		raw, err := s.source.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load series %q: %w", id, err)
		}
		series[id] = raw
	}

	matrix, err := curve.Align(series, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to align series: %w", err)
	}

	s.log.Info().
		Int("series", len(ids)).
		Int("rows", matrix.Rows()).
		Msg("Aligned series into rate matrix")

	report := &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Sources:     ids,
		MatrixRows:  matrix.Rows(),
	}

	for _, years := range s.cfg.Horizons {
		window, ok := curve.Window(matrix, years, s.cfg.TradingDaysPerYear)
		if !ok {
			s.log.Warn().
				Int("horizon_years", years).
				Int("rows_needed", years*s.cfg.TradingDaysPerYear).
				Int("rows_available", matrix.Rows()).
				Msg("Insufficient history for horizon, skipping")
			s.publish(events.HorizonSkipped, map[string]interface{}{
				"run_id":        runID,
				"horizon_years": years,
			})
			report.SkippedHorizons = append(report.SkippedHorizons, years)
			continue
		}

		result, err := pca.Compute(window)
		if err != nil {
			// Complete-or-absent per horizon: an eigensolver failure
			// drops this horizon, the rest proceed.
			s.log.Error().Err(err).Int("horizon_years", years).Msg("PCA failed for horizon, skipping")
			report.SkippedHorizons = append(report.SkippedHorizons, years)
			continue
		}

		report.Horizons = append(report.Horizons, s.buildHorizonResult(years, window, result))
	}

	return report, nil
}

// buildHorizonResult shapes one window's decomposition into chart payloads
func (s *Service) buildHorizonResult(years int, window *curve.Matrix, result *pca.Result) HorizonResult {
	eigenvalues := make([]float64, len(result.Components))
	ratios := make([]float64, len(result.Components))
	for k, c := range result.Components {
		eigenvalues[k] = c.Eigenvalue
		ratios[k] = c.ExplainedRatio
	}

	hr := HorizonResult{
		HorizonYears:    years,
		Rows:            window.Rows(),
		Eigenvalues:     eigenvalues,
		ExplainedRatios: ratios,
		Weights:         buildWeights(result, s.cfg.Labels),
		Projections:     buildProjections(result, s.cfg.SmoothingPeriod),
	}
	if window.Rows() > 0 {
		hr.StartDate = window.Date(0)
		hr.EndDate = window.Date(window.Rows() - 1)
	}
	return hr
}

// publish emits an event when a bus is wired
func (s *Service) publish(t events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(&events.Event{Type: t, Module: "analysis", Data: data})
}
