// Package models defines the core domain entities for tetrascan.
// These models represent per-day detector histograms, the raw pulse streams
// recorded alongside them, and the candidate events extracted from both.
//
// Terminology:
//   - Station: one detector box in the sensor network (e.g. "PR_03").
//   - Day series: the pre-binned (coarse) count histogram for one station-day.
//   - Raw stream: unbinned pulse timestamps used to rebuild a finer histogram.
package models

import (
	"errors"
	"fmt"
)

// DaySeries is the coarse histogram for one station-day: one timestamp and
// one count per bin. Timestamps are strictly increasing. The series may be
// shorter than a full day when the recording was incomplete.
//
// A DaySeries is never mutated after it is loaded; every derived series is
// newly allocated.
type DaySeries struct {
	Timestamps []float64 `json:"timestamps"`
	Counts     []int64   `json:"counts"`
}

// Len returns the number of bins present in the series.
func (s *DaySeries) Len() int {
	return len(s.Timestamps)
}

// Validate checks that the series columns line up and timestamps ascend.
func (s *DaySeries) Validate() error {
	if len(s.Timestamps) != len(s.Counts) {
		return fmt.Errorf("timestamp and count columns differ in length (%d vs %d)",
			len(s.Timestamps), len(s.Counts))
	}
	for i := 1; i < len(s.Timestamps); i++ {
		if s.Timestamps[i] <= s.Timestamps[i-1] {
			return fmt.Errorf("timestamps must be strictly increasing (bin %d)", i)
		}
	}
	for i, c := range s.Counts {
		if c < 0 {
			return fmt.Errorf("count must not be negative (bin %d)", i)
		}
	}
	return nil
}

// RawEventStream holds the unbinned pulse timestamps for one station-day,
// merged from every raw capture channel. Order is not guaranteed.
type RawEventStream struct {
	Timestamps []float64 `json:"timestamps"`
}

// Len returns the number of raw pulses in the stream.
func (r *RawEventStream) Len() int {
	return len(r.Timestamps)
}

// Baseline is the noise floor of one DaySeries.
type Baseline struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Validate checks that the baseline can be used to express deviations in sigma.
func (b *Baseline) Validate() error {
	if b.Mean < 0 {
		return errors.New("baseline mean must not be negative")
	}
	if b.StdDev < 0 {
		return errors.New("baseline std dev must not be negative")
	}
	return nil
}
