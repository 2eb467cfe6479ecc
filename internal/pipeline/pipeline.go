// Package pipeline drives one detection scan of one station over a range of
// days: load each day's coarse histogram, estimate its baseline, find the
// triggering bins, and extract a coarse and a fine view of every event.
//
// A scan is a synchronous, side-effect-free function of the archive contents
// and its parameters. Per-day and per-event failures are recorded in the
// result; only a bad request fails the whole scan.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/tetrascan/internal/days"
	"github.com/rewired-gh/tetrascan/internal/detector"
	"github.com/rewired-gh/tetrascan/internal/histogram"
	"github.com/rewired-gh/tetrascan/internal/logger"
	"github.com/rewired-gh/tetrascan/internal/models"
)

// eventNamespace seeds the deterministic event window IDs.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tetrascan/event-window"))

// Request is one scan of one station.
type Request struct {
	StationID        string
	StartDate        string // YYYY_MM_DD
	DurationDays     int
	ThresholdSigma   float64
	BasePath         string
	ExpectedBinCount int
}

// Options holds the window geometry shared by every scan.
type Options struct {
	CoarseHalfWidth float64
	Fine            detector.FineWindow
	RawChannels     int
}

// DefaultOptions returns the geometry of the 2 ms / 20 µs archive.
func DefaultOptions() Options {
	return Options{
		CoarseHalfWidth: detector.DefaultCoarseHalfWidth,
		Fine:            detector.DefaultFineWindow,
		RawChannels:     histogram.DefaultRawChannels,
	}
}

// Scanner runs scans. It holds no per-scan state and is safe for concurrent use.
type Scanner struct {
	opts Options

	// newLoader builds the loader for a request's base path.
	newLoader func(basePath string) histogram.Loader
}

// New creates a Scanner reading the NumPy archive.
func New(opts Options) *Scanner {
	return &Scanner{
		opts: opts,
		newLoader: func(basePath string) histogram.Loader {
			return histogram.NewFileLoader(basePath, opts.RawChannels)
		},
	}
}

// NewWithLoader creates a Scanner that reads through loader regardless of
// the request's base path.
func NewWithLoader(opts Options, loader histogram.Loader) *Scanner {
	return &Scanner{
		opts:      opts,
		newLoader: func(string) histogram.Loader { return loader },
	}
}

// Scan runs one request with DefaultOptions against the NumPy archive.
func Scan(ctx context.Context, req Request) (*models.ScanResult, error) {
	return New(DefaultOptions()).Scan(ctx, req)
}

// Scan validates req and scans every day in its range. ctx is checked between
// days only.
func (s *Scanner) Scan(ctx context.Context, req Request) (*models.ScanResult, error) {
	start, err := validate(req)
	if err != nil {
		return nil, err
	}

	loader := s.newLoader(req.BasePath)
	result := models.NewScanResult(req.StationID)

	for _, day := range days.InRange(start, req.DurationDays) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.scanDay(loader, req, day, result)
	}

	logger.Debug("Scan %s: %d days read, %d events, %d errors",
		req.StationID, result.DaysRead, result.Len(), len(result.Errors))
	return result, nil
}

// scanDay appends the events and errors of one day to result.
func (s *Scanner) scanDay(loader histogram.Loader, req Request, day time.Time, result *models.ScanResult) {
	label := days.Label(day)

	series, err := loader.LoadDay(req.StationID, day)
	if err != nil {
		if histogram.IsRecoverable(err) {
			result.AddError("%s %s: %v", req.StationID, label, err)
			return
		}
		// Not a data problem (I/O or loader failure); still skip the day, but flag it.
		logger.Warn("Scan %s %s: unexpected load failure: %v", req.StationID, label, err)
		result.AddError("%s %s: unexpected load failure: %v", req.StationID, label, err)
		return
	}
	result.DaysRead++

	baseline, err := detector.EstimateBaseline(series, req.ExpectedBinCount)
	if err != nil {
		result.AddError("%s %s: %v", req.StationID, label, err)
		return
	}

	triggers, minLevel, err := detector.Detect(series, baseline, req.ThresholdSigma)
	if err != nil {
		result.AddError("%s %s: triggers suppressed: %v", req.StationID, label, err)
		return
	}
	logger.Debug("Scan %s %s: %d bins, mean=%.4f std=%.4f, %d triggers",
		req.StationID, label, series.Len(), baseline.Mean, baseline.StdDev, len(triggers))
	if len(triggers) == 0 {
		return
	}

	// Raw streams are only read once a trigger has fired, and only once per day.
	raw, rawErr := loader.LoadRaw(req.StationID, day)

	info := models.EventInfo{
		BaselineMean:     baseline.Mean,
		TriggerThreshold: minLevel,
		DayLabel:         label,
	}
	for _, trig := range triggers {
		w := models.EventWindow{
			ID:             eventID(req.StationID, label, trig.BinIndex),
			StationID:      req.StationID,
			Trigger:        trig,
			FineCounts:     []int64{},
			FineTimestamps: []float64{},
		}
		w.CoarseCounts, w.CoarseTimestamps = detector.ExtractCoarse(series, trig.BinIndex, s.opts.CoarseHalfWidth)

		if rawErr == nil {
			w.FineCounts, w.FineTimestamps = detector.ExtractFine(raw, series, trig.BinIndex, s.opts.Fine)
		}
		result.AddEvent(w, info)
	}
	if rawErr != nil {
		result.AddError("%s %s: fine windows skipped for %d trigger(s): %v",
			req.StationID, label, len(triggers), rawErr)
	}
}

func eventID(stationID, label string, bin int) string {
	return uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s/%s/%d", stationID, label, bin))).String()
}

// validate rejects requests that cannot be scanned and returns the parsed
// start date.
func validate(req Request) (time.Time, error) {
	id := req.StationID
	if strings.TrimSpace(id) == "" {
		return time.Time{}, configErr("station", errors.New("station ID must not be empty"))
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return time.Time{}, configErr("station", fmt.Errorf("station ID %q must be a single path element", id))
	}

	start, err := days.Parse(req.StartDate)
	if err != nil {
		return time.Time{}, configErr("start_date", err)
	}

	if req.ThresholdSigma <= 0 || math.IsNaN(req.ThresholdSigma) || math.IsInf(req.ThresholdSigma, 0) {
		return time.Time{}, configErr("threshold_sigma", fmt.Errorf("%v must be a positive number", req.ThresholdSigma))
	}
	if req.ExpectedBinCount <= 1 {
		return time.Time{}, configErr("expected_bin_count", fmt.Errorf("%d must be greater than 1", req.ExpectedBinCount))
	}

	if err := checkReadableDir(req.BasePath); err != nil {
		return time.Time{}, configErr("base_path", err)
	}
	return start, nil
}

func checkReadableDir(path string) error {
	if path == "" {
		return errors.New("base path must not be empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
