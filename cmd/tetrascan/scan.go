package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/tetrascan/internal/config"
	"github.com/rewired-gh/tetrascan/internal/detector"
	"github.com/rewired-gh/tetrascan/internal/logger"
	"github.com/rewired-gh/tetrascan/internal/metrics"
	"github.com/rewired-gh/tetrascan/internal/pipeline"
	"github.com/rewired-gh/tetrascan/internal/runner"
	"github.com/rewired-gh/tetrascan/internal/storage"
	"github.com/rewired-gh/tetrascan/internal/telegram"
)

// topEvents is the number of events listed in a Telegram summary.
const topEvents = 5

// Execute implements the go-flags Commander interface for ScanCommand.
func (c *ScanCommand) Execute(args []string) error {
	if len(args) > 0 {
		c.Stations = append(c.Stations, args...)
	}
	cfg, err := loadConfig(c.globals, c.apply)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, cfg)
}

// apply copies explicitly set flags over the loaded configuration.
func (c *ScanCommand) apply(cfg *config.Config) {
	if c.Date != "" {
		cfg.Scan.StartDate = c.Date
	}
	if c.Duration != 0 {
		cfg.Scan.DurationDays = c.Duration
	}
	if c.Threshold != 0 {
		cfg.Scan.ThresholdSigma = c.Threshold
	}
	if c.Path != "" {
		cfg.Scan.BasePath = c.Path
	}
	if c.ExpectedBins != 0 {
		cfg.Scan.ExpectedBinCount = c.ExpectedBins
	}
	if c.Workers != 0 {
		cfg.Scan.Workers = c.Workers
	}
}

func (c *ScanCommand) stations(cfg *config.Config) ([]string, error) {
	if c.Event < 0 {
		return nil, fmt.Errorf("--event must be at least 1, got %d", c.Event)
	}
	if c.All {
		return cfg.Scan.Stations, nil
	}
	if len(c.Stations) == 0 {
		return nil, errors.New("no station selected: pass --station or --all")
	}
	return c.Stations, nil
}

func (c *ScanCommand) run(ctx context.Context, cfg *config.Config) error {
	stations, err := c.stations(cfg)
	if err != nil {
		return err
	}

	var notifier *telegram.Client
	if c.Notify {
		if !cfg.Telegram.Enabled {
			return errors.New("--notify requires telegram.enabled in the configuration")
		}
		notifier, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
	}

	req := scanRequest(cfg)
	store := storage.New()
	rec := metrics.NewRecorder()
	r := runner.New(pipeline.New(pipelineOptions(cfg.Window)), store, rec, cfg.Scan.Workers)

	logger.Info("Scanning %d station(s) from %s for %d day(s) at %dσ (workers: %d)",
		len(stations), req.StartDate, req.DurationDays, cfg.Scan.ThresholdSigma, cfg.Scan.Workers)
	started := time.Now()
	results, runErr := r.Run(ctx, stations, req)
	logger.Info("Scan finished in %v", time.Since(started).Round(time.Millisecond))

	printSummary(c.out, results)
	printTotals(c.out, store, len(stations))
	if c.Event > 0 {
		printEvent(c.out, store, stations, c.Event, c.Resolution)
	}
	if c.Dump {
		dumpEvents(c.out, results, c.Resolution)
	}

	if c.MetricsFile != "" {
		if err := rec.WriteTextfile(c.MetricsFile); err != nil {
			logger.Warn("Failed to write metrics textfile: %v", err)
		}
	} else if cfg.Metrics.TextfilePath != "" {
		if err := rec.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("Failed to write metrics textfile: %v", err)
		}
	}

	if notifier != nil {
		report := telegram.BuildReport(store, req.StartDate, req.DurationDays, req.ThresholdSigma, topEvents)
		if err := notifier.Send(report); err != nil {
			logger.Warn("Failed to send Telegram summary: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed := len(store.Failures()); failed > 0 {
		return fmt.Errorf("%d of %d station scans failed", failed, len(stations))
	}
	return nil
}

func scanRequest(cfg *config.Config) pipeline.Request {
	return pipeline.Request{
		StartDate:        cfg.Scan.StartDate,
		DurationDays:     cfg.Scan.DurationDays,
		ThresholdSigma:   float64(cfg.Scan.ThresholdSigma),
		BasePath:         cfg.Scan.BasePath,
		ExpectedBinCount: cfg.Scan.ExpectedBinCount,
	}
}

func pipelineOptions(w config.WindowConfig) pipeline.Options {
	return pipeline.Options{
		CoarseHalfWidth: w.HalfWidth,
		Fine: detector.FineWindow{
			CoarseBinWidth: w.CoarseBinWidth,
			FineBinWidth:   w.FineBinWidth,
			BinsBefore:     w.BinsBefore,
			BinsAfter:      w.BinsAfter,
		},
		RawChannels: w.RawChannels,
	}
}
