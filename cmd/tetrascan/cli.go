package main

import (
	"fmt"
	"io"
	"os"

	goflags "github.com/jessevdk/go-flags"

	"github.com/rewired-gh/tetrascan/internal/config"
	"github.com/rewired-gh/tetrascan/internal/logger"
)

type commands struct {
	Scan *ScanCommand
	Days *DaysCommand
}

func buildParser(out io.Writer) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tetrascan"
	parser.LongDescription = "Scan gamma-ray detector histograms for terrestrial flash candidates."

	cmds := &commands{
		Scan: &ScanCommand{globals: &globals, out: out},
		Days: &DaysCommand{globals: &globals, out: out},
	}

	parser.AddCommand("scan", "Detect events", "Detect events over a date range and extract coarse and fine windows for each.", cmds.Scan)
	parser.AddCommand("days", "List days and files", "List the days in a range and whether each station histogram is present.", cmds.Days)

	return parser, &globals, cmds
}

// RunWithArgs parses args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tetrascan %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(os.Stdout)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return nil
		}
		return err
	}
	return nil
}

// loadConfig loads and validates configuration, then initialises logging.
func loadConfig(globals *GlobalFlags, override func(*config.Config)) (*config.Config, error) {
	path := ""
	if globals != nil {
		path = globals.Config
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if globals != nil && globals.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if path != "" {
		logger.Debug("Configuration loaded from %s", path)
	}
	return cfg, nil
}
