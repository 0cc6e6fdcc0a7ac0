package analysis

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/aristath/curvescope/internal/pca"
)

// buildWeights shapes the leading components into bar-chart payloads,
// resolving source ids to display labels
func buildWeights(res *pca.Result, labels map[string]string) []ComponentWeights {
	lead := len(res.Projections)
	weights := make([]ComponentWeights, lead)
	for k := 0; k < lead; k++ {
		component := res.Components[k]
		points := make([]WeightPoint, len(res.Names))
		for j, name := range res.Names {
			points[j] = WeightPoint{
				Label:  labelFor(labels, name),
				Weight: component.Vector[j],
			}
		}
		weights[k] = ComponentWeights{
			Component:      k + 1,
			Eigenvalue:     component.Eigenvalue,
			ExplainedRatio: component.ExplainedRatio,
			Weights:        points,
		}
	}
	return weights
}

// buildProjections shapes the leading components' projected series into
// time-series payloads, with an optional SMA overlay
func buildProjections(res *pca.Result, smoothingPeriod int) []ComponentProjection {
	projections := make([]ComponentProjection, len(res.Projections))
	for k, raw := range res.Projections {
		points := make([]ProjectionPoint, len(raw))
		for i, p := range raw {
			points[i] = ProjectionPoint{Date: p.Date, Value: p.Value}
		}
		projections[k] = ComponentProjection{
			Component: k + 1,
			Points:    points,
			Smoothed:  smoothProjection(points, smoothingPeriod),
		}
	}
	return projections
}

// smoothProjection computes an SMA overlay of a projected series. The SMA
// needs a full period of history before its first value, so the overlay
// starts period-1 points into the window. Returns nil when smoothing is
// disabled or the series is shorter than the period.
func smoothProjection(points []ProjectionPoint, period int) []ProjectionPoint {
	if period <= 1 || len(points) < period {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	sma := talib.Sma(values, period)

	var smoothed []ProjectionPoint
	for i, v := range sma {
		if math.IsNaN(v) {
			continue // warm-up prefix
		}
		smoothed = append(smoothed, ProjectionPoint{Date: points[i].Date, Value: v})
	}
	return smoothed
}

// labelFor resolves a source id to its display label, falling back to the id
func labelFor(labels map[string]string, id string) string {
	if label, ok := labels[id]; ok {
		return label
	}
	return id
}
