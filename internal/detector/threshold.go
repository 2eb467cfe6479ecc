package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/rewired-gh/tetrascan/internal/models"
)

// ErrInvalidThreshold is returned for a non-positive or non-finite sigma threshold.
var ErrInvalidThreshold = errors.New("invalid sigma threshold")

// SigmaLevel returns floor(max(0, count − mean) / std). The caller guarantees std > 0.
func SigmaLevel(count int64, b models.Baseline) int64 {
	dev := float64(count) - b.Mean
	if dev < 0 {
		dev = 0
	}
	return int64(math.Floor(dev / b.StdDev))
}

// MinAbsoluteLevel returns the smallest whole count at the sigma threshold,
// ceil(threshold·std + mean).
func MinAbsoluteLevel(b models.Baseline, thresholdSigma float64) float64 {
	return math.Ceil(thresholdSigma*b.StdDev + b.Mean)
}

// Detect returns every bin whose floored sigma level reaches thresholdSigma,
// in ascending bin order, together with the absolute count level of the
// threshold.
//
// A zero or non-finite std dev yields ErrDegenerateBaseline and no triggers:
// every positive deviation would be infinitely many sigma.
func Detect(series models.DaySeries, b models.Baseline, thresholdSigma float64) ([]models.Trigger, float64, error) {
	if thresholdSigma <= 0 || math.IsNaN(thresholdSigma) || math.IsInf(thresholdSigma, 0) {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, thresholdSigma)
	}
	minLevel := MinAbsoluteLevel(b, thresholdSigma)
	if b.StdDev == 0 || math.IsNaN(b.StdDev) || math.IsInf(b.StdDev, 0) {
		return nil, minLevel, fmt.Errorf("%w: std dev is %v", ErrDegenerateBaseline, b.StdDev)
	}

	triggers := []models.Trigger{}
	for i, c := range series.Counts {
		level := SigmaLevel(c, b)
		if float64(level) >= thresholdSigma {
			triggers = append(triggers, models.Trigger{
				BinIndex:   i,
				Timestamp:  series.Timestamps[i],
				Count:      c,
				SigmaLevel: level,
			})
		}
	}
	return triggers, minLevel, nil
}
