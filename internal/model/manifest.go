package model

import "time"

// RunWindow bounds the observation window of one pipeline run.
type RunWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ArtifactHash pairs an output artifact name with its content hash.
type ArtifactHash struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

// DegradedSource records a source that contributed nothing this run.
type DegradedSource struct {
	Source SourceKind `json:"source"`
	Reason string     `json:"reason"`
}

// Manifest is the write-once, hashed record of a run's inputs, outputs, and
// decisions. Given the same scope file, config, and fixture inputs an
// independent party can recompute identical evidence and output hashes.
type Manifest struct {
	Version         string           `json:"version"`
	Build           string           `json:"build"`
	ScopeHash       string           `json:"scope_hash"`
	ConfigHash      string           `json:"config_hash"`
	Detectors       []string         `json:"detectors"`
	WindowStart     time.Time        `json:"window_start"`
	WindowEnd       time.Time        `json:"window_end"`
	DurationMS      int64            `json:"duration_ms"`
	EvidenceHashes  []ArtifactHash   `json:"evidence_hashes"`
	OutputHashes    []ArtifactHash   `json:"output_hashes"`
	DegradedSources []DegradedSource `json:"degraded_sources,omitempty"`
	RawConsidered   int              `json:"raw_considered"`
	RawSuppressed   int              `json:"raw_suppressed"`
	RawMalformed    int              `json:"raw_malformed"`
	SignalsNew      int              `json:"signals_new"`
	SignalsRepeat   int              `json:"signals_repeat"`
	Findings        int              `json:"findings"`
}

// RunSummary is the persisted digest of a completed run, used by the trend
// and diff features.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Signals     int       `json:"signals"`
	NewSignals  int       `json:"new_signals"`
	Findings    int       `json:"findings"`
	Alerts      int       `json:"alerts"`
}

// SignalRecord is the compact per-signal row the history store keeps for
// cross-run dedupe and trend aggregation.
type SignalRecord struct {
	RunID     string     `json:"run_id"`
	SignalID  string     `json:"signal_id"`
	Type      SignalType `json:"type"`
	Subject   string     `json:"subject"`
	DedupeKey string     `json:"dedupe_key"`
	Timestamp time.Time  `json:"timestamp"`
}

// TrendBucket counts occurrences of one key in the current and previous
// window.
type TrendBucket struct {
	Key               string     `json:"key"`
	Count             int        `json:"count"`
	PrevCount         int        `json:"prev_count"`
	Delta             int        `json:"delta"`
	FirstSeen         *time.Time `json:"first_seen,omitempty"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	FirstSeenInWindow bool       `json:"first_seen_in_window"`
}

// TrendReport aggregates stored runs over a window.
type TrendReport struct {
	WindowStart  time.Time     `json:"window_start"`
	WindowEnd    time.Time     `json:"window_end"`
	BySignalType []TrendBucket `json:"by_signal_type"`
	BySubject    []TrendBucket `json:"by_subject"`
	ByDedupeKey  []TrendBucket `json:"by_dedupe_key"`
	Summary      []string      `json:"summary"`
}
