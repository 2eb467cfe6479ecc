package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/rewired-gh/tetrascan/internal/runner"
	"github.com/rewired-gh/tetrascan/internal/storage"
)

var (
	stationColor = color.New(color.Bold)
	eventColor   = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	quietColor   = color.New(color.FgHiBlack)
)

// printSummary writes one block per station: its events with the baseline
// mean ("Ave Rate") and absolute trigger level ("Min Rate") of their day.
func printSummary(w io.Writer, results []runner.StationResult) {
	for _, sr := range results {
		if sr.Err != nil {
			stationColor.Fprintf(w, "%s", sr.StationID)
			errorColor.Fprintf(w, "  failed: %v\n", sr.Err)
			continue
		}
		res := sr.Result
		stationColor.Fprintf(w, "%s", sr.StationID)
		fmt.Fprintf(w, "  %d event(s), %d day(s) read, %d error(s)", res.Len(), res.DaysRead, len(res.Errors))
		quietColor.Fprintf(w, "  (%v)\n", sr.Elapsed.Round(time.Millisecond))

		for i, ev := range res.Events {
			info := res.Infos[i]
			fine := "no fine view"
			if ev.HasFine() {
				fine = fmt.Sprintf("%d fine bins", len(ev.FineCounts))
			}
			eventColor.Fprintf(w, "  [%d] %s t=%.3fs %dσ", i+1, info.DayLabel, ev.Trigger.Timestamp, ev.Trigger.SigmaLevel)
			fmt.Fprintf(w, "  Ave Rate: %.3f  Min Rate: %.0f  %s\n", info.BaselineMean, info.TriggerThreshold, fine)
		}
	}
}

// printTotals writes the run footer.
func printTotals(w io.Writer, store *storage.Storage, stations int) {
	failed := len(store.Failures())
	stationColor.Fprintf(w, "Total: %d event(s) from %d station(s)", store.TotalEvents(), stations-failed)
	if failed > 0 {
		errorColor.Fprintf(w, ", %d failed", failed)
	}
	fmt.Fprintln(w)
}

// printEvent writes event n (1-based) of every station in the chosen
// resolution, one bin per line.
func printEvent(w io.Writer, store *storage.Storage, stations []string, n int, resolution string) {
	for _, st := range stations {
		ev, info, err := store.GetEvent(st, n-1)
		if err != nil {
			quietColor.Fprintf(w, "%s: %v\n", st, err)
			continue
		}
		stationColor.Fprintf(w, "%s event %d of %d", st, n, store.EventCount(st))
		fmt.Fprintf(w, "  %s t=%.3fs %dσ  Ave Rate: %.3f  Min Rate: %.0f  (%s)\n",
			info.DayLabel, ev.Trigger.Timestamp, ev.Trigger.SigmaLevel, info.BaselineMean, info.TriggerThreshold, resolution)

		ts, counts := ev.CoarseTimestamps, ev.CoarseCounts
		if resolution == "fine" {
			ts, counts = ev.FineTimestamps, ev.FineCounts
		}
		if len(counts) == 0 {
			quietColor.Fprintf(w, "  no %s view\n", resolution)
			continue
		}
		for j := range counts {
			fmt.Fprintf(w, "  %.6f  %d\n", ts[j], counts[j])
		}
	}
}

// dumpEvents writes one CSV row per bin of the chosen resolution:
// station,event_id,day,timestamp,count.
func dumpEvents(w io.Writer, results []runner.StationResult, resolution string) {
	fmt.Fprintln(w, "station,event_id,day,timestamp,count")
	for _, sr := range results {
		if sr.Result == nil {
			continue
		}
		for i, ev := range sr.Result.Events {
			day := sr.Result.Infos[i].DayLabel
			ts, counts := ev.CoarseTimestamps, ev.CoarseCounts
			if resolution == "fine" {
				ts, counts = ev.FineTimestamps, ev.FineCounts
			}
			for j := range counts {
				fmt.Fprintf(w, "%s,%s,%s,%.6f,%d\n", ev.StationID, ev.ID, day, ts[j], counts[j])
			}
		}
	}
}
