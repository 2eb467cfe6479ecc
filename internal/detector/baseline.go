// Package detector finds statistically significant count excursions in a
// station-day histogram and carves the coarse and fine views around them.
//
// The baseline is estimated against the full expected bin count of a day, so
// missing bins count as zero:
//
//	mean     = Σcount / expected
//	variance = (Σ(count − mean)² + (expected − present)·mean²) / (expected − 1)
//
// Incomplete days therefore get a diluted mean. A bin triggers when
//
//	floor(max(0, count − mean) / std) ≥ threshold
//
// and the absolute count level reported alongside is ceil(threshold·std + mean).
package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/rewired-gh/tetrascan/internal/models"
)

// ErrDegenerateBaseline is returned when no usable standard deviation exists
// for a day: expected bin count ≤ 1, more bins than expected, or a zero or
// non-finite std dev.
var ErrDegenerateBaseline = errors.New("degenerate baseline")

// DefaultExpectedBinCount is the number of 2 ms bins in 24 hours.
const DefaultExpectedBinCount = 43_200_000

// EstimateBaseline computes the zero-padded mean and std dev of a day series.
// The padding term is added analytically; missing bins are never materialised.
func EstimateBaseline(series models.DaySeries, expectedBinCount int) (models.Baseline, error) {
	if expectedBinCount <= 1 {
		return models.Baseline{}, fmt.Errorf("%w: expected bin count %d leaves variance undefined",
			ErrDegenerateBaseline, expectedBinCount)
	}
	present := len(series.Counts)
	if present > expectedBinCount {
		return models.Baseline{}, fmt.Errorf("%w: %d bins present but only %d expected",
			ErrDegenerateBaseline, present, expectedBinCount)
	}

	expected := float64(expectedBinCount)

	var sum int64
	for _, c := range series.Counts {
		sum += c
	}
	mean := float64(sum) / expected

	var sq float64
	for _, c := range series.Counts {
		d := float64(c) - mean
		sq += d * d
	}
	sq += float64(expectedBinCount-present) * mean * mean

	return models.Baseline{
		Mean:   mean,
		StdDev: math.Sqrt(sq / (expected - 1)),
	}, nil
}
