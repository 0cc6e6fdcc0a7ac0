package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNoSeries is returned when Align is called with zero input series.
// This is the only structurally fatal alignment condition; everything else
// (malformed cells, disjoint dates) degrades to a smaller or empty matrix.
var ErrNoSeries = errors.New("no input series supplied")

// Matrix is a rectangular, fully numeric rate table: rows indexed by a
// strictly increasing sequence of dates, columns indexed by tenor name.
// It is created once by Align and never mutated afterwards.
type Matrix struct {
	dates []time.Time
	names []string
	data  []float64 // row-major
}

// Rows returns the number of date rows
func (m *Matrix) Rows() int { return len(m.dates) }

// Cols returns the number of tenor columns
func (m *Matrix) Cols() int { return len(m.names) }

// Names returns the column names in input order
func (m *Matrix) Names() []string { return m.names }

// Dates returns the ascending date index
func (m *Matrix) Dates() []time.Time { return m.dates }

// Date returns the date of row i
func (m *Matrix) Date(i int) time.Time { return m.dates[i] }

// At returns the value at row i, column j
func (m *Matrix) At(i, j int) float64 { return m.data[i*len(m.names)+j] }

// Row returns row i as a slice view. Callers must not modify it.
func (m *Matrix) Row(i int) []float64 {
	cols := len(m.names)
	return m.data[i*cols : (i+1)*cols]
}

// Column returns a copy of column j
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.dates))
	for i := range col {
		col[i] = m.At(i, j)
	}
	return col
}

// Align merges per-tenor raw series into one clean matrix:
//  1. inner-join on dates: a date survives only if present in every series
//  2. non-numeric cells are coerced to NaN
//  3. NaN runs strictly between two known values in a column are filled by
//     linear interpolation against the calendar-day axis
//  4. rows still containing a NaN are dropped
//
// Column order follows the order argument. The result may legally have zero
// rows (fully disjoint inputs); only zero series or a name without a series
// is an error.
func Align(series map[string]RawSeries, order []string) (*Matrix, error) {
	if len(order) == 0 {
		return nil, ErrNoSeries
	}

	// Per-series date -> raw cell lookup. Dates are normalized to midnight
	// UTC so sources with differing time components still join. Duplicate
	// dates within one series: last observation wins.
	lookups := make([]map[int64]string, len(order))
	for i, name := range order {
		raw, ok := series[name]
		if !ok {
			return nil, fmt.Errorf("no series loaded for %q", name)
		}
		lookup := make(map[int64]string, len(raw))
		for _, obs := range raw {
			lookup[dayKey(obs.Date)] = obs.Raw
		}
		lookups[i] = lookup
	}

	// Date intersection across all series
	var keys []int64
	for key := range lookups[0] {
		present := true
		for _, lookup := range lookups[1:] {
			if _, ok := lookup[key]; !ok {
				present = false
				break
			}
		}
		if present {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows, cols := len(keys), len(order)
	data := make([]float64, rows*cols)
	for i, key := range keys {
		for j := range order {
			data[i*cols+j] = coerce(lookups[j][key])
		}
	}

	// Fill interior gaps column by column; edge gaps stay NaN
	for j := 0; j < cols; j++ {
		interpolateColumn(data, keys, rows, cols, j)
	}

	// Drop rows that still contain a missing value
	dates := make([]time.Time, 0, rows)
	clean := make([]float64, 0, len(data))
	for i := 0; i < rows; i++ {
		row := data[i*cols : (i+1)*cols]
		if rowHasNaN(row) {
			continue
		}
		dates = append(dates, time.Unix(keys[i], 0).UTC())
		clean = append(clean, row...)
	}

	names := make([]string, len(order))
	copy(names, order)

	return &Matrix{dates: dates, names: names, data: clean}, nil
}

// dayKey normalizes a timestamp to its UTC calendar day, as a unix second
func dayKey(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// coerce parses a raw cell into a float64, mapping anything unusable
// (empty cells, placeholder text, infinities) to NaN
func coerce(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// interpolateColumn fills NaN runs that sit strictly between two known
// values in column j, linearly against calendar time. Leading and trailing
// runs have no anchor on one side and are left as NaN.
func interpolateColumn(data []float64, keys []int64, rows, cols, j int) {
	prev := -1 // index of the last known value
	for i := 0; i < rows; i++ {
		v := data[i*cols+j]
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			v0, v1 := data[prev*cols+j], v
			t0, t1 := keys[prev], keys[i]
			for k := prev + 1; k < i; k++ {
				frac := float64(keys[k]-t0) / float64(t1-t0)
				data[k*cols+j] = v0 + (v1-v0)*frac
			}
		}
		prev = i
	}
}

func rowHasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
