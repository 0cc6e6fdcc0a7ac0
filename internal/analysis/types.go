// Package analysis orchestrates the rate-curve PCA pipeline: it loads all
// configured series, aligns them, runs windowed PCA per horizon and shapes
// the results into chart-ready payloads.
package analysis

import "time"

// WeightPoint is one bar in a component-weights chart
type WeightPoint struct {
	Label  string  `json:"label" msgpack:"label"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// ProjectionPoint is one point of a projected component time series
type ProjectionPoint struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Value float64   `json:"value" msgpack:"value"`
}

// ComponentWeights is the bar-chart payload for one component: eigenvector
// entries paired with display labels, in column order.
//
// Weight signs are only meaningful relative to each other within one
// component: the underlying eigenvector sign is ambiguous and may flip
// between runs.
type ComponentWeights struct {
	Component      int           `json:"component" msgpack:"component"`
	Eigenvalue     float64       `json:"eigenvalue" msgpack:"eigenvalue"`
	ExplainedRatio float64       `json:"explained_ratio" msgpack:"explained_ratio"`
	Weights        []WeightPoint `json:"weights" msgpack:"weights"`
}

// ComponentProjection is the time-series payload for one component.
// Smoothed is present only when a smoothing period is configured.
type ComponentProjection struct {
	Component int               `json:"component" msgpack:"component"`
	Points    []ProjectionPoint `json:"points" msgpack:"points"`
	Smoothed  []ProjectionPoint `json:"smoothed,omitempty" msgpack:"smoothed,omitempty"`
}

// HorizonResult holds everything computed for one horizon's window
type HorizonResult struct {
	HorizonYears    int                   `json:"horizon_years" msgpack:"horizon_years"`
	Rows            int                   `json:"rows" msgpack:"rows"`
	StartDate       time.Time             `json:"start_date" msgpack:"start_date"`
	EndDate         time.Time             `json:"end_date" msgpack:"end_date"`
	Eigenvalues     []float64             `json:"eigenvalues" msgpack:"eigenvalues"`
	ExplainedRatios []float64             `json:"explained_ratios" msgpack:"explained_ratios"`
	Weights         []ComponentWeights    `json:"weights" msgpack:"weights"`
	Projections     []ComponentProjection `json:"projections" msgpack:"projections"`
}

// Report is the complete outcome of one analysis run. Horizons with
// insufficient history appear in SkippedHorizons; a horizon is never
// partially present.
type Report struct {
	RunID           string          `json:"run_id" msgpack:"run_id"`
	GeneratedAt     time.Time       `json:"generated_at" msgpack:"generated_at"`
	Sources         []string        `json:"sources" msgpack:"sources"`
	MatrixRows      int             `json:"matrix_rows" msgpack:"matrix_rows"`
	Horizons        []HorizonResult `json:"horizons" msgpack:"horizons"`
	SkippedHorizons []int           `json:"skipped_horizons,omitempty" msgpack:"skipped_horizons,omitempty"`
}

// Horizon returns the result for one horizon, or nil when it was skipped
// or never configured
func (r *Report) Horizon(years int) *HorizonResult {
	for i := range r.Horizons {
		if r.Horizons[i].HorizonYears == years {
			return &r.Horizons[i]
		}
	}
	return nil
}
