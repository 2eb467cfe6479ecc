package detector

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rewired-gh/tetrascan/internal/models"
)

// DefaultCoarseHalfWidth is the half width of a coarse window in time units.
const DefaultCoarseHalfWidth = 0.5

// binEpsilon absorbs float noise when converting a window span into fine bins.
const binEpsilon = 1e-9

// FineWindow is the geometry of a fine-resolution view.
type FineWindow struct {
	CoarseBinWidth float64 // Width of one coarse bin (2 ms)
	FineBinWidth   float64 // Width of one fine bin (20 µs)
	BinsBefore     int     // Coarse bins before the trigger
	BinsAfter      int     // Coarse bins after the trigger
}

// DefaultFineWindow spans five coarse bins before the trigger and six after.
var DefaultFineWindow = FineWindow{
	CoarseBinWidth: 0.002,
	FineBinWidth:   0.00002,
	BinsBefore:     5,
	BinsAfter:      6,
}

// Nearest returns the index of the element of ascending values closest to
// target. Ties go to the lower index. values must not be empty.
func Nearest(values []float64, target float64) int {
	i := sort.SearchFloat64s(values, target)
	if i == 0 {
		return 0
	}
	if i == len(values) {
		return len(values) - 1
	}
	if math.Abs(values[i-1]-target) <= math.Abs(values[i]-target) {
		return i - 1
	}
	return i
}

// ExtractCoarse slices the day series between the bins nearest to
// t − halfWidth and t + halfWidth, where t is the trigger timestamp. The slice
// is half-open and copied.
func ExtractCoarse(series models.DaySeries, triggerIdx int, halfWidth float64) ([]int64, []float64) {
	t := series.Timestamps[triggerIdx]
	lo := Nearest(series.Timestamps, t-halfWidth)
	hi := Nearest(series.Timestamps, t+halfWidth)
	if hi < lo {
		hi = lo
	}

	counts := make([]int64, hi-lo)
	copy(counts, series.Counts[lo:hi])
	stamps := make([]float64, hi-lo)
	copy(stamps, series.Timestamps[lo:hi])
	return counts, stamps
}

// FineBinCount is the number of fine bins covering span coarse bins,
// rounded up.
func FineBinCount(span int, w FineWindow) int {
	if span <= 0 || w.FineBinWidth <= 0 {
		return 0
	}
	return int(math.Ceil(float64(span)*w.CoarseBinWidth/w.FineBinWidth - binEpsilon))
}

// ExtractFine rebins the raw stream around a trigger. The window is bounded by
// the coarse bins nearest to t − BinsBefore·coarse and t + BinsAfter·coarse;
// raw stamps strictly inside the bound timestamps are histogrammed into
// equal-width fine bins spanning the bound interval. It returns the counts and
// the left edge of each bin. The coarse series is used only as a time
// reference and the raw stream is left untouched.
func ExtractFine(raw models.RawEventStream, series models.DaySeries, triggerIdx int, w FineWindow) ([]int64, []float64) {
	ts := series.Timestamps
	t := ts[triggerIdx]
	lo := Nearest(ts, t-float64(w.BinsBefore)*w.CoarseBinWidth)
	hi := Nearest(ts, t+float64(w.BinsAfter)*w.CoarseBinWidth)

	n := FineBinCount(hi-lo, w)
	if n <= 0 {
		return []int64{}, []float64{}
	}
	start, end := ts[lo], ts[hi]

	inside := make([]float64, 0)
	for _, x := range raw.Timestamps {
		if x > start && x < end {
			inside = append(inside, x)
		}
	}
	sort.Float64s(inside)

	edges := floats.Span(make([]float64, n+1), start, end)
	edges[0], edges[n] = start, end
	hist := stat.Histogram(nil, edges, inside, nil)

	counts := make([]int64, n)
	for i, c := range hist {
		counts[i] = int64(c)
	}
	left := make([]float64, n)
	copy(left, edges[:n])
	return counts, left
}
