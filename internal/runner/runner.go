// Package runner scans several stations in parallel. Each station gets one
// independent scan on a bounded worker pool; results are joined in station
// order once every scan has finished.
package runner

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/tetrascan/internal/logger"
	"github.com/rewired-gh/tetrascan/internal/metrics"
	"github.com/rewired-gh/tetrascan/internal/models"
	"github.com/rewired-gh/tetrascan/internal/pipeline"
	"github.com/rewired-gh/tetrascan/internal/storage"
)

// Scanner runs a single station scan.
type Scanner interface {
	Scan(ctx context.Context, req pipeline.Request) (*models.ScanResult, error)
}

// StationResult is the outcome of one station's scan.
type StationResult struct {
	StationID string
	Result    *models.ScanResult // nil when Err is set
	Err       error
	Elapsed   time.Duration
}

// StationError is a scan that failed as a whole.
type StationError struct {
	StationID string
	Err       error
}

func (e StationError) Error() string {
	return fmt.Sprintf("scan failed for station %s: %v", e.StationID, e.Err)
}

func (e StationError) Unwrap() error { return e.Err }

// Runner dispatches station scans.
type Runner struct {
	scanner  Scanner
	store    *storage.Storage
	recorder *metrics.Recorder
	workers  int
}

// New creates a Runner. store and recorder may be nil.
func New(scanner Scanner, store *storage.Storage, recorder *metrics.Recorder, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		scanner:  scanner,
		store:    store,
		recorder: recorder,
		workers:  workers,
	}
}

// Run scans every station with template's parameters. A failed station never
// cancels the others; its error is reported in its StationResult. The returned
// error is non-nil only when ctx ended before all scans completed.
func (r *Runner) Run(ctx context.Context, stations []string, template pipeline.Request) ([]StationResult, error) {
	results := make([]StationResult, len(stations))

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, station := range stations {
		i, station := i, station
		g.Go(func() error {
			results[i] = r.scanOne(ctx, station, template)
			return nil
		})
	}
	_ = g.Wait()

	if r.recorder != nil {
		r.recorder.MarkRun(time.Now())
	}
	return results, ctx.Err()
}

func (r *Runner) scanOne(ctx context.Context, station string, template pipeline.Request) StationResult {
	req := template
	req.StationID = station

	started := time.Now()
	res, err := r.scanner.Scan(ctx, req)
	elapsed := time.Since(started)

	if err != nil {
		err = StationError{StationID: station, Err: err}
		logger.Error("%v", err)
		if r.store != nil {
			r.store.PutFailure(station, err)
		}
		if r.recorder != nil {
			r.recorder.ObserveFailure(station, elapsed)
		}
		return StationResult{StationID: station, Err: err, Elapsed: elapsed}
	}

	logger.Info("Scanned %s: %d events, %d errors in %v", station, res.Len(), len(res.Errors), elapsed.Round(time.Millisecond))
	for _, msg := range res.Errors {
		logger.Warn("%s", msg)
	}
	if r.store != nil {
		if err := r.store.PutResult(res); err != nil {
			logger.Error("Failed to store result for %s: %v", station, err)
		}
	}
	if r.recorder != nil {
		r.recorder.ObserveScan(res, elapsed)
	}
	return StationResult{StationID: station, Result: res, Elapsed: elapsed}
}
