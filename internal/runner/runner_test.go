package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/tetrascan/internal/histogram/histogramtest"
	"github.com/rewired-gh/tetrascan/internal/metrics"
	"github.com/rewired-gh/tetrascan/internal/models"
	"github.com/rewired-gh/tetrascan/internal/pipeline"
	"github.com/rewired-gh/tetrascan/internal/storage"
)

// fakeScanner returns one event per station and fails for stations in fail.
type fakeScanner struct {
	fail     map[string]bool
	inFlight int32
	peak     int32
	mu       sync.Mutex
	seen     []pipeline.Request
}

func (f *fakeScanner) Scan(_ context.Context, req pipeline.Request) (*models.ScanResult, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, req)
	f.mu.Unlock()

	if f.fail[req.StationID] {
		return nil, errors.New("base path unreadable")
	}
	r := models.NewScanResult(req.StationID)
	r.AddEvent(models.EventWindow{ID: req.StationID + "-0", StationID: req.StationID},
		models.EventInfo{BaselineMean: 1, TriggerThreshold: 10, DayLabel: req.StartDate})
	return r, nil
}

func template() pipeline.Request {
	return pipeline.Request{
		StartDate:        "2016_01_30",
		DurationDays:     3,
		ThresholdSigma:   30,
		BasePath:         "/data",
		ExpectedBinCount: 43_200_000,
	}
}

func TestRunPreservesStationOrder(t *testing.T) {
	sc := &fakeScanner{fail: map[string]bool{"UAH_01": true}}
	store := storage.New()
	rec := metrics.NewRecorder()

	stations := []string{"PR_01", "UAH_01", "PA_05", "LSU_02"}
	results, err := New(sc, store, rec, 2).Run(context.Background(), stations, template())
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, st := range stations {
		assert.Equal(t, st, results[i].StationID)
	}
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Result.Len())

	var se StationError
	require.ErrorAs(t, results[1].Err, &se)
	assert.Equal(t, "UAH_01", se.StationID)
	assert.Nil(t, results[1].Result)
	assert.NoError(t, results[2].Err, "one failure does not cancel the rest")

	assert.Equal(t, 3, store.TotalEvents())
	assert.Contains(t, store.Failures(), "UAH_01")
	n, err := testutil.GatherAndCount(rec.Registry(), "tetrascan_scans_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	for _, req := range sc.seen {
		assert.Equal(t, "2016_01_30", req.StartDate)
		assert.Equal(t, 3, req.DurationDays)
	}
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	sc := &fakeScanner{}
	stations := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	_, err := New(sc, nil, nil, 3).Run(context.Background(), stations, template())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&sc.peak), int32(3))
	assert.Len(t, sc.seen, 8)
}

func TestRunReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&fakeScanner{}, nil, nil, 0).Run(ctx, []string{"PR_01"}, template())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWithPipeline(t *testing.T) {
	base := t.TempDir()
	day := time.Date(2016, time.February, 28, 0, 0, 0, 0, time.UTC)

	rows := histogramtest.Series(0, 0.002, 500, 2, map[int]float64{250: 300})
	for i := range rows {
		if i%2 == 1 && i != 250 {
			rows[i][1] = 3
		}
	}
	histogramtest.WriteDay(t, base, "PR_01", day, rows, []float64{0.50001, 0.50003})
	histogramtest.WriteDay(t, base, "PR_02", day, rows, nil)

	req := pipeline.Request{
		StartDate:        "2016_02_28",
		DurationDays:     2,
		ThresholdSigma:   10,
		BasePath:         base,
		ExpectedBinCount: 500,
	}
	store := storage.New()
	results, err := New(pipeline.New(pipeline.DefaultOptions()), store, nil, 4).
		Run(context.Background(), []string{"PR_01", "PR_02", "PR_03"}, req)
	require.NoError(t, err)

	require.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Result.Len())
	assert.True(t, results[0].Result.Events[0].HasFine())
	assert.Len(t, results[0].Result.Errors, 1, "2016_02_29 is missing")

	require.NoError(t, results[1].Err)
	assert.False(t, results[1].Result.Events[0].HasFine())
	assert.Len(t, results[1].Result.Errors, 2)

	require.NoError(t, results[2].Err, "a station without data is not fatal")
	assert.Equal(t, 0, results[2].Result.Len())
	assert.Len(t, results[2].Result.Errors, 2)

	assert.Equal(t, 2, store.TotalEvents())
}
