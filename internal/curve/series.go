// Package curve holds the time-series data model for constant-maturity rate
// analysis: raw per-tenor series, the aligned rate matrix, and trailing
// window selection.
package curve

import "time"

// Observation is a single (date, value) point as delivered by a loader.
// The value is kept raw; coercion to a number is the cleaner's job, so a
// malformed cell in a source file never fails the load itself.
type Observation struct {
	Date time.Time
	Raw  string
}

// RawSeries is the ordered sequence of observations for one named tenor.
// Loaders may deliver it unordered and with gaps; Align sorts and cleans.
type RawSeries []Observation
