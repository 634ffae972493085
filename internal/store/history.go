// Package store persists run history: run summaries for the trend report and
// compact signal records for cross-run dedupe. The store never holds signal
// payloads or raw evidence, only identity and counts.
package store

import (
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

// History is the persistence boundary the pipeline depends on. A failed
// store never corrupts in-memory run results; callers surface the error and
// still emit outputs.
type History interface {
	// SaveRun appends one completed run with its signal records.
	SaveRun(summary model.RunSummary, signals []model.SignalRecord) error

	// FirstSeen returns every dedupe key persisted by prior runs with its
	// earliest observation timestamp. A run's own records are saved only
	// after it completes, so the store always holds prior history; no
	// timestamp cutoff is applied, because observation times of replayed
	// evidence fall inside the current window and must still count.
	FirstSeen() (map[string]time.Time, error)

	// RunsInWindow returns stored run summaries whose start falls inside
	// [start, end], ordered by start time.
	RunsInWindow(start, end time.Time) ([]model.RunSummary, error)

	// SignalsInWindow returns stored signal records whose timestamp falls
	// inside [start, end], ordered by signal id.
	SignalsInWindow(start, end time.Time) ([]model.SignalRecord, error)

	// PurgeOlderThan drops runs and signal records older than the cutoff,
	// returning how many records were removed.
	PurgeOlderThan(cutoff time.Time) (int, error)
}
