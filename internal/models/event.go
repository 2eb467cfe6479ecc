package models

import (
	"errors"
	"fmt"
)

// Trigger is a bin of a DaySeries whose floored sigma level reached the
// requested threshold.
type Trigger struct {
	BinIndex   int     `json:"bin_index"`
	Timestamp  float64 `json:"timestamp"`
	Count      int64   `json:"count"`
	SigmaLevel int64   `json:"sigma_level"` // floor((count - mean) / std)
}

// EventWindow holds the two resolution views of one detected event.
// Fine views are empty when the raw streams for that day could not be read.
type EventWindow struct {
	ID               string    `json:"id"` // Deterministic: derived from station, day and bin
	StationID        string    `json:"station_id"`
	Trigger          Trigger   `json:"trigger"`
	CoarseCounts     []int64   `json:"coarse_counts"`
	CoarseTimestamps []float64 `json:"coarse_timestamps"`
	FineCounts       []int64   `json:"fine_counts"`
	FineTimestamps   []float64 `json:"fine_timestamps"`
}

// HasFine reports whether the fine view was populated.
func (w *EventWindow) HasFine() bool {
	return len(w.FineCounts) > 0
}

// Validate checks that each view's columns line up.
func (w *EventWindow) Validate() error {
	if w.ID == "" {
		return errors.New("event window ID must not be empty")
	}
	if len(w.CoarseCounts) != len(w.CoarseTimestamps) {
		return fmt.Errorf("coarse view columns differ in length (%d vs %d)",
			len(w.CoarseCounts), len(w.CoarseTimestamps))
	}
	if len(w.FineCounts) != len(w.FineTimestamps) {
		return fmt.Errorf("fine view columns differ in length (%d vs %d)",
			len(w.FineCounts), len(w.FineTimestamps))
	}
	return nil
}

// EventInfo is the display context attached to each EventWindow.
type EventInfo struct {
	BaselineMean     float64 `json:"baseline_mean"`     // Average counts per coarse bin that day
	TriggerThreshold float64 `json:"trigger_threshold"` // Absolute count level of the sigma threshold
	DayLabel         string  `json:"day_label"`         // YYYY_MM_DD
}

// Validate checks that the info can be displayed.
func (i *EventInfo) Validate() error {
	if i.DayLabel == "" {
		return errors.New("day label must not be empty")
	}
	if i.TriggerThreshold < i.BaselineMean {
		return errors.New("trigger threshold must be >= baseline mean")
	}
	return nil
}
