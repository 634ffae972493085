package pipeline

import (
	"sort"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

// DedupeResult is the deduplicated signal sequence plus the novelty counts
// escalation triggers care about.
type DedupeResult struct {
	Signals []model.Signal
	New     int
	Repeats int
}

// Dedupe collapses within-run duplicates by signal id and tags cross-run
// repeats against the persisted history. Repeats are kept, not dropped: they
// still corroborate findings, but are excluded from new-in-this-run counts.
// Output is sorted by (id, timestamp) regardless of input order.
func Dedupe(signals []model.Signal, seen map[string]time.Time) *DedupeResult {
	sorted := append([]model.Signal(nil), signals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	result := &DedupeResult{}
	var prevID string
	for _, sig := range sorted {
		if sig.ID == prevID {
			continue
		}
		prevID = sig.ID

		if _, ok := seen[sig.DedupeKey]; ok {
			sig.Repeat = true
			result.Repeats++
		} else {
			result.New++
		}
		result.Signals = append(result.Signals, sig)
	}
	return result
}
