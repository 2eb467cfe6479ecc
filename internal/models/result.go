package models

import "fmt"

// ScanResult is everything one scan of one station produced. Events and
// Infos are index-aligned; Errors holds recoverable per-day and per-event
// failures as human-readable text.
type ScanResult struct {
	StationID string        `json:"station_id"`
	Events    []EventWindow `json:"events"`
	Infos     []EventInfo   `json:"infos"`
	Errors    []string      `json:"errors"`
	DaysRead  int           `json:"days_read"` // Days whose coarse histogram loaded
}

// NewScanResult returns an empty result with non-nil slices.
func NewScanResult(stationID string) *ScanResult {
	return &ScanResult{
		StationID: stationID,
		Events:    []EventWindow{},
		Infos:     []EventInfo{},
		Errors:    []string{},
	}
}

// AddEvent appends an event together with its display info.
func (r *ScanResult) AddEvent(w EventWindow, info EventInfo) {
	r.Events = append(r.Events, w)
	r.Infos = append(r.Infos, info)
}

// AddError appends a formatted diagnostic.
func (r *ScanResult) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Len returns the number of events.
func (r *ScanResult) Len() int {
	return len(r.Events)
}

// Validate checks that events and infos stay index-aligned.
func (r *ScanResult) Validate() error {
	if len(r.Events) != len(r.Infos) {
		return fmt.Errorf("events and infos differ in length (%d vs %d)", len(r.Events), len(r.Infos))
	}
	for i := range r.Events {
		if err := r.Events[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if err := r.Infos[i].Validate(); err != nil {
			return fmt.Errorf("info %d: %w", i, err)
		}
	}
	return nil
}
