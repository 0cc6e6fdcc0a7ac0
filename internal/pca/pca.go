// Package pca implements principal component analysis over an aligned rate
// matrix: window-local centering, sample covariance, symmetric
// eigen-decomposition, descending ordering, explained-variance ratios and
// projections onto the leading components.
package pca

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/curvescope/internal/curve"
)

// MaxProjectedComponents caps how many leading components get a projected
// time series. Yield curves are dominated by level/slope/curvature, so three
// covers the interpretable structure.
const MaxProjectedComponents = 3

// Component is one (eigenvalue, eigenvector, explained-ratio) triple.
//
// The eigenvector sign is inherently ambiguous: a decomposition may flip it
// between runs or inputs, and no normalization is applied here. Callers that
// need a stable sign across windows must fix it themselves (e.g. force the
// largest-magnitude loading positive). ExplainedRatio is NaN when total
// variance is zero (0/0); consumers must guard before display.
type Component struct {
	Eigenvalue     float64   `json:"eigenvalue" msgpack:"eigenvalue"`
	ExplainedRatio float64   `json:"explained_ratio" msgpack:"explained_ratio"`
	Vector         []float64 `json:"vector" msgpack:"vector"`
}

// ProjectedPoint is one date's scalar projection onto a component
type ProjectedPoint struct {
	Date  time.Time `json:"date" msgpack:"date"`
	Value float64   `json:"value" msgpack:"value"`
}

// Result holds the full decomposition of one window: all components sorted
// by descending eigenvalue, plus date-indexed projections for the leading
// min(3, columns) components.
type Result struct {
	Names       []string           `json:"names" msgpack:"names"`
	Components  []Component        `json:"components" msgpack:"components"`
	Projections [][]ProjectedPoint `json:"projections" msgpack:"projections"`
}

// Compute runs PCA on a window. Degenerate windows (fewer than 2 rows,
// constant columns) still produce a valid result with zero eigenvalues and
// possibly NaN ratios; they are never an error. The only failure mode is the
// eigensolver itself not converging.
func Compute(w *curve.Matrix) (*Result, error) {
	rows, cols := w.Rows(), w.Cols()
	if cols == 0 {
		return nil, fmt.Errorf("window has no columns")
	}

	// Window-local centering. Each horizon is a self-contained analysis of
	// that period's covariance structure, so means are computed over the
	// window's rows only.
	means := columnMeans(w)
	var centered *mat.Dense
	if rows > 0 {
		centered = mat.NewDense(rows, cols, nil)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				centered.Set(i, j, w.At(i, j)-means[j])
			}
		}
	}

	// Sample covariance (n-1 denominator). With fewer than 2 observations
	// the sample covariance is undefined; the zero matrix keeps the window
	// on the normal eigen path and yields the documented degenerate result
	// instead of poisoning the solver with NaN.
	cov := mat.NewSymDense(cols, nil)
	if rows >= 2 {
		stat.CovarianceMatrix(cov, centered, nil)
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, fmt.Errorf("failed to factorize covariance matrix")
	}

	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	var total float64
	for _, v := range vals {
		total += v
	}

	// EigenSym returns eigenvalues in ascending order; reverse for
	// descending. Equal eigenvalues keep whatever relative order the
	// decomposition produced.
	components := make([]Component, cols)
	for k := 0; k < cols; k++ {
		src := cols - 1 - k
		vector := make([]float64, cols)
		mat.Col(vector, src, &vecs)
		components[k] = Component{
			Eigenvalue:     vals[src],
			ExplainedRatio: vals[src] / total,
			Vector:         vector,
		}
	}

	lead := MaxProjectedComponents
	if cols < lead {
		lead = cols
	}
	projections := make([][]ProjectedPoint, lead)
	for k := 0; k < lead; k++ {
		points := make([]ProjectedPoint, rows)
		for i := 0; i < rows; i++ {
			var dot float64
			for j := 0; j < cols; j++ {
				dot += centered.At(i, j) * components[k].Vector[j]
			}
			points[i] = ProjectedPoint{Date: w.Date(i), Value: dot}
		}
		projections[k] = points
	}

	names := make([]string, cols)
	copy(names, w.Names())

	return &Result{
		Names:       names,
		Components:  components,
		Projections: projections,
	}, nil
}

// columnMeans computes per-column means over the window's rows
func columnMeans(w *curve.Matrix) []float64 {
	rows, cols := w.Rows(), w.Cols()
	means := make([]float64, cols)
	if rows == 0 {
		return means
	}
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += w.At(i, j)
		}
		means[j] = sum / float64(rows)
	}
	return means
}
