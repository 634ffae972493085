package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

// FileStore is a single-file JSON history store. Every mutation rewrites the
// file through a temp-file rename so a crashed run never leaves a truncated
// store behind.
type FileStore struct {
	path string
	mu   sync.Mutex
	data storeData
}

type storeData struct {
	Runs    []model.RunSummary   `json:"runs"`
	Signals []model.SignalRecord `json:"signals"`
}

// OpenFile loads (or initializes) a file-backed history store.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, &model.PersistenceError{Op: "open store", Err: err}
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, &model.PersistenceError{Op: "parse store", Err: err}
	}
	return s, nil
}

// SaveRun implements History.
func (s *FileStore) SaveRun(summary model.RunSummary, signals []model.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Runs = append(s.data.Runs, summary)
	s.data.Signals = append(s.data.Signals, signals...)
	return s.flush()
}

// FirstSeen implements History.
func (s *FileStore) FirstSeen() (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]time.Time)
	for _, rec := range s.data.Signals {
		if prev, ok := seen[rec.DedupeKey]; !ok || rec.Timestamp.Before(prev) {
			seen[rec.DedupeKey] = rec.Timestamp
		}
	}
	return seen, nil
}

// RunsInWindow implements History.
func (s *FileStore) RunsInWindow(start, end time.Time) ([]model.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RunSummary
	for _, run := range s.data.Runs {
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
func (s *FileStore) SignalsInWindow(start, end time.Time) ([]model.SignalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SignalRecord
	for _, rec := range s.data.Signals {
		if inWindow(rec.Timestamp, start, end) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SignalID < out[j].SignalID })
	return out, nil
}

// PurgeOlderThan implements History.
func (s *FileStore) PurgeOlderThan(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0

	runs := s.data.Runs[:0]
	for _, run := range s.data.Runs {
		if run.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		runs = append(runs, run)
	}
	s.data.Runs = runs

	signals := s.data.Signals[:0]
	for _, rec := range s.data.Signals {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		signals = append(signals, rec)
	}
	s.data.Signals = signals

	if err := s.flush(); err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return &model.PersistenceError{Op: "encode store", Err: err}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.PersistenceError{Op: "create store dir", Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".osprey-store-*")
	if err != nil {
		return &model.PersistenceError{Op: "create temp store", Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &model.PersistenceError{Op: "write store", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &model.PersistenceError{Op: "close store", Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &model.PersistenceError{Op: "replace store", Err: err}
	}
	return nil
}

func inWindow(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
