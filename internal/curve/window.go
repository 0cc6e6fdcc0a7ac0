package curve

import "time"

// Window returns the trailing sub-matrix covering horizonYears of history,
// approximated as horizonYears*tradingDaysPerYear rows. When the matrix is
// shorter than that, it returns (nil, false): callers skip the horizon, this
// is an expected outcome for short histories and not an error.
//
// The returned matrix owns copies of its rows and dates, so it stays valid
// independently of the source matrix.
func Window(m *Matrix, horizonYears, tradingDaysPerYear int) (*Matrix, bool) {
	rowsNeeded := horizonYears * tradingDaysPerYear
	if rowsNeeded <= 0 || rowsNeeded > m.Rows() {
		return nil, false
	}

	start := m.Rows() - rowsNeeded
	cols := m.Cols()

	dates := make([]time.Time, rowsNeeded)
	copy(dates, m.dates[start:])

	data := make([]float64, rowsNeeded*cols)
	copy(data, m.data[start*cols:])

	names := make([]string, cols)
	copy(names, m.names)

	return &Matrix{dates: dates, names: names, data: data}, true
}
