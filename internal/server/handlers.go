package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/curvescope/internal/analysis"
)

// HealthResponse is the health check payload
type HealthResponse struct {
	Status      string  `json:"status"`
	Service     string  `json:"service"`
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	Database    string  `json:"database,omitempty"`
}

// handleHealth returns service health plus host CPU and memory usage
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := s.getSystemStats()

	response := HealthResponse{
		Status:      "healthy",
		Service:     "curvescope",
		UptimeHours: time.Since(s.startupTime).Hours(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
	}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			response.Status = "degraded"
			response.Database = err.Error()
		} else {
			response.Database = "ok"
		}
	}

	status := http.StatusOK
	if response.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a 100ms sampling interval to keep the health endpoint responsive.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// RunResponse summarizes a triggered analysis run
type RunResponse struct {
	RunID           string `json:"run_id"`
	MatrixRows      int    `json:"matrix_rows"`
	Horizons        int    `json:"horizons"`
	SkippedHorizons []int  `json:"skipped_horizons,omitempty"`
}

// handleRunAnalysis triggers a fresh analysis run
// POST /api/analysis/run
func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("Manual analysis run triggered")

	report, err := s.service.Run(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Analysis run failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, RunResponse{
		RunID:           report.RunID,
		MatrixRows:      report.MatrixRows,
		Horizons:        len(report.Horizons),
		SkippedHorizons: report.SkippedHorizons,
	})
}

// handleLatest returns the full report of the most recent run
// GET /api/analysis/latest
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	report, ok := s.latestReport(w)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// handleWeights returns the component-weights charts for one horizon
// GET /api/analysis/{horizon}/weights
func (s *Server) handleWeights(w http.ResponseWriter, r *http.Request) {
	horizon, ok := s.horizonResult(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, horizon.Weights)
}

// handleProjections returns the projected time-series charts for one horizon
// GET /api/analysis/{horizon}/projections
func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	horizon, ok := s.horizonResult(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, horizon.Projections)
}

// latestReport loads the most recent persisted report, writing the error
// response itself when there is none
func (s *Server) latestReport(w http.ResponseWriter) (*analysis.Report, bool) {
	report, err := s.repo.LatestRun()
	if err != nil {
		if errors.Is(err, analysis.ErrNoRuns) {
			s.writeError(w, http.StatusNotFound, "no analysis has been run yet")
			return nil, false
		}
		s.log.Error().Err(err).Msg("Failed to load latest run")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return nil, false
	}
	return report, true
}

// horizonResult resolves the {horizon} URL parameter against the latest
// report. A horizon that was skipped or never configured is a 404: results
// are complete-or-absent per horizon.
func (s *Server) horizonResult(w http.ResponseWriter, r *http.Request) (*analysis.HorizonResult, bool) {
	years, err := strconv.Atoi(chi.URLParam(r, "horizon"))
	if err != nil || years <= 0 {
		s.writeError(w, http.StatusBadRequest, "horizon must be a positive integer of years")
		return nil, false
	}

	report, ok := s.latestReport(w)
	if !ok {
		return nil, false
	}

	horizon := report.Horizon(years)
	if horizon == nil {
		s.writeError(w, http.StatusNotFound, "no results for this horizon")
		return nil, false
	}
	return horizon, true
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
