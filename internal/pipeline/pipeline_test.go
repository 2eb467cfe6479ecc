package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/tetrascan/internal/histogram"
	"github.com/rewired-gh/tetrascan/internal/histogram/histogramtest"
	"github.com/rewired-gh/tetrascan/internal/models"
)

const (
	testStation  = "PR_07"
	testBins     = 1000
	testBinWidth = 0.002
	spikeBin     = 600
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// quietRows alternates 2 and 3 counts: a noise floor with no 10σ excursion.
func quietRows() [][]float64 {
	rows := histogramtest.Series(0, testBinWidth, testBins, 2, nil)
	for i := range rows {
		if i%2 == 1 {
			rows[i][1] = 3
		}
	}
	return rows
}

func spikeRows(bins ...int) [][]float64 {
	rows := quietRows()
	for _, b := range bins {
		rows[b][1] = 200
	}
	return rows
}

// spikeRaw returns raw pulses around the spike: four inside the fine window
// and two outside it.
func spikeRaw() []float64 {
	t := float64(spikeBin) * testBinWidth
	return []float64{t + 0.00001, t + 0.00003, t - 0.005, t + 0.011, t - 0.5, t + 0.5}
}

func request(base string, start string, duration int) Request {
	return Request{
		StationID:        testStation,
		StartDate:        start,
		DurationDays:     duration,
		ThresholdSigma:   10,
		BasePath:         base,
		ExpectedBinCount: testBins,
	}
}

func TestScanEndToEnd(t *testing.T) {
	base := t.TempDir()
	// 2016_01_30 has no files at all.
	histogramtest.WriteDay(t, base, testStation, date(2016, 1, 31), quietRows(), nil)
	histogramtest.WriteDay(t, base, testStation, date(2016, 2, 1), spikeRows(spikeBin), spikeRaw())

	result, err := Scan(context.Background(), request(base, "2016_01_30", 3))
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	missing := histogram.Paths(base, testStation, date(2016, 1, 30)).Hist
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], missing)
	assert.Contains(t, result.Errors[0], "2016_01_30")
	assert.Equal(t, 2, result.DaysRead)

	require.Equal(t, 1, result.Len())
	ev := result.Events[0]
	info := result.Infos[0]

	assert.Equal(t, testStation, ev.StationID)
	assert.Equal(t, spikeBin, ev.Trigger.BinIndex)
	assert.Equal(t, int64(200), ev.Trigger.Count)
	assert.Equal(t, "2016_02_01", info.DayLabel)
	assert.Greater(t, info.TriggerThreshold, info.BaselineMean)

	// Coarse window: bins nearest to 0.7 and 1.7 around t=1.2.
	assert.Len(t, ev.CoarseCounts, 500)
	assert.InDelta(t, 0.7, ev.CoarseTimestamps[0], 1e-9)

	// Fine window: 11 coarse bins of 20 µs bins, four pulses inside.
	require.Len(t, ev.FineCounts, 1100)
	require.Len(t, ev.FineTimestamps, 1100)
	var total int64
	for _, c := range ev.FineCounts {
		total += c
	}
	assert.Equal(t, int64(4), total)
}

func TestScanNoTriggerDayIsSilent(t *testing.T) {
	base := t.TempDir()
	histogramtest.WriteDay(t, base, testStation, date(2015, 6, 1), quietRows(), nil)

	result, err := Scan(context.Background(), request(base, "2015_06_01", 1))
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Infos)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.DaysRead)
}

func TestScanIsDeterministic(t *testing.T) {
	base := t.TempDir()
	histogramtest.WriteDay(t, base, testStation, date(2015, 3, 3), spikeRows(100, spikeBin), spikeRaw())
	histogramtest.WriteDay(t, base, testStation, date(2015, 3, 4), spikeRows(spikeBin), spikeRaw())

	req := request(base, "2015_03_03", 3)
	first, err := Scan(context.Background(), req)
	require.NoError(t, err)
	second, err := Scan(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Equal(t, 3, first.Len())
	assert.NotEqual(t, first.Events[0].ID, first.Events[1].ID)
}

func TestScanOrdering(t *testing.T) {
	base := t.TempDir()
	histogramtest.WriteDay(t, base, testStation, date(2015, 12, 31), spikeRows(spikeBin, 100), spikeRaw())
	histogramtest.WriteDay(t, base, testStation, date(2016, 1, 1), spikeRows(50), spikeRaw())

	result, err := Scan(context.Background(), request(base, "2015_12_31", 2))
	require.NoError(t, err)
	require.Equal(t, 3, result.Len())

	var got []string
	for i, ev := range result.Events {
		got = append(got, fmt.Sprintf("%s#%d", result.Infos[i].DayLabel, ev.Trigger.BinIndex))
	}
	assert.Equal(t, []string{"2015_12_31#100", "2015_12_31#600", "2016_01_01#50"}, got)
}

func TestScanMissingRawKeepsCoarse(t *testing.T) {
	base := t.TempDir()
	histogramtest.WriteDay(t, base, testStation, date(2015, 7, 9), spikeRows(100, spikeBin), nil)

	result, err := Scan(context.Background(), request(base, "2015_07_09", 1))
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())
	require.Len(t, result.Errors, 1, "one error per day, not per event")

	for _, ev := range result.Events {
		assert.NotEmpty(t, ev.CoarseCounts)
		assert.False(t, ev.HasFine())
		assert.NotNil(t, ev.FineCounts)
	}
	assert.Contains(t, result.Errors[0], "fine windows skipped for 2 trigger(s)")
	assert.Contains(t, result.Errors[0], "dev1_09.npy")
}

func TestScanEmptyHistogram(t *testing.T) {
	base := t.TempDir()
	day := date(2015, 8, 1)
	histogramtest.WriteMatrix(t, histogram.Paths(base, testStation, day).Hist, [][]float64{})
	histogramtest.WriteDay(t, base, testStation, date(2015, 8, 2), spikeRows(spikeBin), spikeRaw())

	result, err := Scan(context.Background(), request(base, "2015_08_01", 2))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no data in file")
	assert.Equal(t, 1, result.Len())
}

func TestScanUniformDaySuppressesTriggers(t *testing.T) {
	base := t.TempDir()
	rows := histogramtest.Series(0, testBinWidth, testBins, 5, nil)
	histogramtest.WriteDay(t, base, testStation, date(2015, 9, 1), rows, nil)

	result, err := Scan(context.Background(), request(base, "2015_09_01", 1))
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "degenerate baseline")
}

func TestScanZeroDuration(t *testing.T) {
	result, err := Scan(context.Background(), request(t.TempDir(), "2015_01_01", 0))
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Errors)
}

func TestScanConfigErrors(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name  string
		mod   func(*Request)
		field string
	}{
		{"empty station", func(r *Request) { r.StationID = " " }, "station"},
		{"station with separator", func(r *Request) { r.StationID = "../PR_01" }, "station"},
		{"bad date", func(r *Request) { r.StartDate = "2015_02_30" }, "start_date"},
		{"zero threshold", func(r *Request) { r.ThresholdSigma = 0 }, "threshold_sigma"},
		{"one expected bin", func(r *Request) { r.ExpectedBinCount = 1 }, "expected_bin_count"},
		{"missing base path", func(r *Request) { r.BasePath = filepath.Join(base, "nope") }, "base_path"},
		{"base path is a file", func(r *Request) { r.BasePath = file }, "base_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request(base, "2015_01_01", 1)
			tt.mod(&req)
			result, err := Scan(context.Background(), req)
			assert.Nil(t, result)
			require.ErrorIs(t, err, ErrConfig)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, request(t.TempDir(), "2015_01_01", 2))
	assert.ErrorIs(t, err, context.Canceled)
}

// countingLoader serves fixed series from memory and counts raw reads.
type countingLoader struct {
	series   map[string]models.DaySeries
	rawCalls int
}

func (l *countingLoader) LoadDay(_ string, day time.Time) (models.DaySeries, error) {
	s, ok := l.series[day.Format("2006_01_02")]
	if !ok {
		return models.DaySeries{}, &histogram.DataNotFoundError{Path: day.Format("2006_01_02")}
	}
	return s, nil
}

func (l *countingLoader) LoadRaw(string, time.Time) (models.RawEventStream, error) {
	l.rawCalls++
	return models.RawEventStream{Timestamps: spikeRaw()}, nil
}

func toSeries(rows [][]float64) models.DaySeries {
	s := models.DaySeries{}
	for _, r := range rows {
		s.Timestamps = append(s.Timestamps, r[0])
		s.Counts = append(s.Counts, int64(r[1]))
	}
	return s
}

func TestScanLoadsRawLazily(t *testing.T) {
	loader := &countingLoader{series: map[string]models.DaySeries{
		"2015_04_01": toSeries(quietRows()),
		"2015_04_02": toSeries(spikeRows(100, 300, spikeBin)),
	}}
	s := NewWithLoader(DefaultOptions(), loader)

	result, err := s.Scan(context.Background(), request(t.TempDir(), "2015_04_01", 1))
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Equal(t, 0, loader.rawCalls, "trigger-free days must not touch raw files")

	result, err = s.Scan(context.Background(), request(t.TempDir(), "2015_04_01", 3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Len())
	assert.Equal(t, 1, loader.rawCalls, "raw files are read once per day")
	assert.Len(t, result.Errors, 1) // 2015_04_03 is missing
}

// failingLoader fails every day with err.
type failingLoader struct{ err error }

func (l failingLoader) LoadDay(string, time.Time) (models.DaySeries, error) {
	return models.DaySeries{}, l.err
}

func (l failingLoader) LoadRaw(string, time.Time) (models.RawEventStream, error) {
	return models.RawEventStream{}, l.err
}

func TestScanDayLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		flagged bool
	}{
		{"missing file", &histogram.DataNotFoundError{Path: "hist_01.npy"}, "could not find file: hist_01.npy", false},
		{"empty file", &histogram.EmptyDataError{Path: "hist_01.npy"}, "no data in file: hist_01.npy", false},
		{"malformed file", &histogram.MalformedDataError{Path: "hist_01.npy", Reason: "bad header"}, "bad header", false},
		{"other failure", errors.New("input/output error"), "unexpected load failure: input/output error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWithLoader(DefaultOptions(), failingLoader{err: tt.err})
			result, err := s.Scan(context.Background(), request(t.TempDir(), "2015_05_01", 2))
			require.NoError(t, err, "load failures never abort a scan")
			require.Len(t, result.Errors, 2)
			assert.Equal(t, 0, result.DaysRead)
			for _, msg := range result.Errors {
				assert.Contains(t, msg, tt.want)
				assert.Equal(t, tt.flagged, strings.Contains(msg, "unexpected load failure"))
			}
		})
	}
}
