package store

import (
	"sort"
	"sync"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

// MemoryStore is an in-process History used by tests and by runs that opt
// out of persistence.
type MemoryStore struct {
	mu      sync.Mutex
	runs    []model.RunSummary
	signals []model.SignalRecord
}

// NewMemoryStore returns an empty in-memory history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveRun implements History.
func (s *MemoryStore) SaveRun(summary model.RunSummary, signals []model.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, summary)
	s.signals = append(s.signals, signals...)
	return nil
}

// FirstSeen implements History.
func (s *MemoryStore) FirstSeen() (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]time.Time)
	for _, rec := range s.signals {
		if prev, ok := seen[rec.DedupeKey]; !ok || rec.Timestamp.Before(prev) {
			seen[rec.DedupeKey] = rec.Timestamp
		}
	}
	return seen, nil
}

// RunsInWindow implements History.
func (s *MemoryStore) RunsInWindow(start, end time.Time) ([]model.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RunSummary
	for _, run := range s.runs {
		if inWindow(run.StartedAt, start, end) {
			out = append(out, run)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].RunID < out[j].RunID
	})
	return out, nil
}

// SignalsInWindow implements History.
func (s *MemoryStore) SignalsInWindow(start, end time.Time) ([]model.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SignalRecord
	for _, rec := range s.signals {
		if inWindow(rec.Timestamp, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalID < out[j].SignalID })
	return out, nil
}

// PurgeOlderThan implements History.
func (s *MemoryStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	runs := s.runs[:0]
	for _, run := range s.runs {
		if run.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		runs = append(runs, run)
	}
	s.runs = runs
	signals := s.signals[:0]
	for _, rec := range s.signals {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		signals = append(signals, rec)
	}
	s.signals = signals
	return removed, nil
}
