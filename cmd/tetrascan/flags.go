package main

import "io"

// GlobalFlags are accepted by every subcommand.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file (defaults and TETRASCAN_* env when empty)"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ScanCommand runs event detection over one or more stations.
type ScanCommand struct {
	Stations     []string `short:"s" long:"station" description:"Station to scan (repeatable)"`
	All          bool     `long:"all" description:"Scan every configured station"`
	Date         string   `short:"d" long:"date" description:"First day, YYYY_MM_DD"`
	Duration     int      `short:"n" long:"duration" description:"Number of consecutive days"`
	Threshold    int      `short:"t" long:"threshold" description:"Trigger threshold in sigma"`
	Path         string   `short:"p" long:"path" description:"Archive root directory"`
	ExpectedBins int      `long:"expected-bins" description:"Bins in a complete day"`
	Workers      int      `short:"j" long:"workers" description:"Stations scanned in parallel"`
	Resolution   string   `long:"resolution" description:"View written by --dump and --event" choice:"coarse" choice:"fine" default:"coarse"`
	Dump         bool     `long:"dump" description:"Write every event window to stdout as CSV rows"`
	Event        int      `short:"e" long:"event" description:"Print the Nth event (1-based) of each station bin by bin"`
	Notify       bool     `long:"notify" description:"Send a summary to Telegram (requires telegram config)"`
	MetricsFile  string   `long:"metrics-file" description:"Write Prometheus metrics to this textfile"`

	globals *GlobalFlags
	out     io.Writer
}

// DaysCommand lists the days and histogram files a scan would read.
type DaysCommand struct {
	Station  string `short:"s" long:"station" description:"Station whose files are listed" required:"true"`
	Date     string `short:"d" long:"date" description:"First day, YYYY_MM_DD"`
	Duration int    `short:"n" long:"duration" description:"Number of consecutive days"`
	Path     string `short:"p" long:"path" description:"Archive root directory"`

	globals *GlobalFlags
	out     io.Writer
}
