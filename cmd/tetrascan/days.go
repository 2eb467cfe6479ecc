package main

import (
	"fmt"
	"os"

	"github.com/rewired-gh/tetrascan/internal/config"
	"github.com/rewired-gh/tetrascan/internal/days"
	"github.com/rewired-gh/tetrascan/internal/histogram"
)

// Execute implements the go-flags Commander interface for DaysCommand.
func (c *DaysCommand) Execute(_ []string) error {
	cfg, err := loadConfig(c.globals, func(cfg *config.Config) {
		if c.Date != "" {
			cfg.Scan.StartDate = c.Date
		}
		if c.Duration != 0 {
			cfg.Scan.DurationDays = c.Duration
		}
		if c.Path != "" {
			cfg.Scan.BasePath = c.Path
		}
	})
	if err != nil {
		return err
	}
	return c.list(cfg)
}

func (c *DaysCommand) list(cfg *config.Config) error {
	ds, err := days.DaysInRange(cfg.Scan.StartDate, cfg.Scan.DurationDays)
	if err != nil {
		return err
	}

	present := 0
	for _, d := range ds {
		p := histogram.Paths(cfg.Scan.BasePath, c.Station, d)
		if _, err := os.Stat(p.Hist); err != nil {
			errorColor.Fprintf(c.out, "%s  missing  %s\n", days.Label(d), p.Hist)
			continue
		}
		present++
		fmt.Fprintf(c.out, "%s  ok       %s\n", days.Label(d), p.Hist)
	}
	quietColor.Fprintf(c.out, "%d of %d day(s) present for %s\n", present, len(ds), c.Station)
	return nil
}
