// Package storage provides thread-safe in-memory storage for the results of
// one multi-station run. Each station's scan writes its result once; readers
// page through events per station or rank them across stations.
//
// Nothing is persisted: a Store lives for one session and is discarded with it.
package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rewired-gh/tetrascan/internal/models"
)

// Storage provides thread-safe in-memory storage of scan results
type Storage struct {
	results  map[string]*models.ScanResult
	failures map[string]error
	mu       sync.RWMutex
}

// RankedEvent is an event with its display info, as returned by TopEvents
type RankedEvent struct {
	Event models.EventWindow
	Info  models.EventInfo
}

// New creates a new empty Storage
func New() *Storage {
	return &Storage{
		results:  make(map[string]*models.ScanResult),
		failures: make(map[string]error),
	}
}

// PutResult stores the result of a station's scan, replacing any earlier one
func (s *Storage) PutResult(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("result must not be nil")
	}
	if result.StationID == "" {
		return fmt.Errorf("result station ID must not be empty")
	}
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid result for %s: %w", result.StationID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[result.StationID] = result
	delete(s.failures, result.StationID)
	return nil
}

// PutFailure records that a station's scan failed before producing a result
func (s *Storage) PutFailure(stationID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.results, stationID)
	s.failures[stationID] = err
}

// GetResult retrieves a station's result
func (s *Storage) GetResult(stationID string) (*models.ScanResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, failed := s.failures[stationID]; failed {
		return nil, fmt.Errorf("scan of %s failed: %w", stationID, err)
	}
	result, exists := s.results[stationID]
	if !exists {
		return nil, fmt.Errorf("no result for station: %s", stationID)
	}
	return result, nil
}

// Stations returns every station with a result or failure, sorted
func (s *Storage) Stations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stations := make([]string, 0, len(s.results)+len(s.failures))
	for id := range s.results {
		stations = append(stations, id)
	}
	for id := range s.failures {
		stations = append(stations, id)
	}
	sort.Strings(stations)
	return stations
}

// Failures returns a copy of the recorded station failures
func (s *Storage) Failures() map[string]error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]error, len(s.failures))
	for id, err := range s.failures {
		out[id] = err
	}
	return out
}

// EventCount returns the number of events stored for a station
func (s *Storage) EventCount(stationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.results[stationID]; ok {
		return r.Len()
	}
	return 0
}

// TotalEvents returns the number of events across all stations
func (s *Storage) TotalEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, r := range s.results {
		total += r.Len()
	}
	return total
}

// GetEvent returns a station's event by position (0-based)
func (s *Storage) GetEvent(stationID string, i int) (models.EventWindow, models.EventInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.results[stationID]
	if !ok {
		return models.EventWindow{}, models.EventInfo{}, fmt.Errorf("no result for station: %s", stationID)
	}
	if i < 0 || i >= r.Len() {
		return models.EventWindow{}, models.EventInfo{}, fmt.Errorf("event %d out of range for %s (%d events)", i, stationID, r.Len())
	}
	return r.Events[i], r.Infos[i], nil
}

// TopEvents returns the k events with the highest sigma level across all
// stations. Ties are broken by station, then day, then bin for determinism.
func (s *Storage) TopEvents(k int) []RankedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []RankedEvent
	for _, r := range s.results {
		for i := range r.Events {
			all = append(all, RankedEvent{Event: r.Events[i], Info: r.Infos[i]})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Event.Trigger.SigmaLevel != b.Event.Trigger.SigmaLevel {
			return a.Event.Trigger.SigmaLevel > b.Event.Trigger.SigmaLevel
		}
		if a.Event.StationID != b.Event.StationID {
			return a.Event.StationID < b.Event.StationID
		}
		if a.Info.DayLabel != b.Info.DayLabel {
			return a.Info.DayLabel < b.Info.DayLabel
		}
		return a.Event.Trigger.BinIndex < b.Event.Trigger.BinIndex
	})

	if k <= 0 || len(all) == 0 {
		return []RankedEvent{}
	}
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}
