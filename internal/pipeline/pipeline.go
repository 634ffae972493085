package pipeline

import (
	"sort"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
	"github.com/osprey-sec/osprey/internal/source"
	"github.com/osprey-sec/osprey/internal/store"
)

// Pipeline orchestrates one run of the deterministic core over collected raw
// evidence: normalize, dedupe, score, correlate, escalate, manifest.
type Pipeline struct {
	sc         *scope.Scope
	history    store.History
	normalizer *Normalizer
	scorer     *Scorer
	correlator *Correlator
	escalator  *Escalator
}

// NewPipeline creates a pipeline for a validated scope. History may be an
// in-memory store; the core only reads previously-seen keys from it.
func NewPipeline(sc *scope.Scope, history store.History) *Pipeline {
	return &Pipeline{
		sc:         sc,
		history:    history,
		normalizer: NewNormalizer(sc),
		scorer:     NewScorer(sc),
		correlator: NewCorrelator(BaselineRules()),
		escalator:  NewEscalator(sc.Policy),
	}
}

// RunResult is the complete output of one pipeline run. Signals and findings
// are in their final deterministic order; the manifest lacks only the output
// artifact hashes, which the writer appends once the artifacts exist.
type RunResult struct {
	Signals  []model.Signal
	Findings []model.Finding
	Evidence []model.Evidence
	Manifest *model.Manifest

	SignalsNew    int
	SignalsRepeat int
}

// Run executes the core stages over fully-collected evidence. Now drives
// temporal decay and must be injected for replay determinism.
func (p *Pipeline) Run(collected *source.CollectResult, window model.RunWindow, now time.Time, scopeHash, configHash string, durationMS int64) (*RunResult, error) {
	normalized := p.normalizer.Normalize(collected.Raw)

	seen, err := p.history.FirstSeen()
	if err != nil {
		return nil, err
	}
	deduped := Dedupe(normalized.Signals, seen)

	scored := p.scorer.ScoreAll(deduped.Signals)

	findings := p.correlator.Correlate(scored)
	for i := range findings {
		findings[i] = DecayFinding(findings[i], now, p.sc.Policy.DecayWindowDays)
	}
	findings = p.escalator.EscalateAll(findings)

	manifest, err := BuildManifest(ManifestInput{
		Window:          window,
		ScopeHash:       scopeHash,
		ConfigHash:      configHash,
		Detectors:       collected.Detectors,
		DurationMS:      durationMS,
		Evidence:        normalized.Evidence,
		DegradedSources: collected.Degraded,
		RawConsidered:   normalized.Considered,
		RawSuppressed:   normalized.Suppressed,
		RawMalformed:    normalized.Malformed,
		SignalsNew:      deduped.New,
		SignalsRepeat:   deduped.Repeats,
		Findings:        len(findings),
	})
	if err != nil {
		return nil, err
	}

	return &RunResult{
		Signals:       scored,
		Findings:      findings,
		Evidence:      sortedEvidence(normalized.Evidence),
		Manifest:      manifest,
		SignalsNew:    deduped.New,
		SignalsRepeat: deduped.Repeats,
	}, nil
}

// SignalRecords converts the run's signals into the compact rows the history
// store keeps for cross-run dedupe and trends.
func (r *RunResult) SignalRecords(runID string) []model.SignalRecord {
	records := make([]model.SignalRecord, 0, len(r.Signals))
	for _, sig := range r.Signals {
		records = append(records, model.SignalRecord{
			RunID:     runID,
			SignalID:  sig.ID,
			Type:      sig.Type,
			Subject:   sig.Subject,
			DedupeKey: sig.DedupeKey,
			Timestamp: sig.Timestamp,
		})
	}
	return records
}

// Summary builds the per-run digest the trend feature aggregates.
func (r *RunResult) Summary(runID string, startedAt time.Time, window model.RunWindow) model.RunSummary {
	alerts := 0
	for _, f := range r.Findings {
		if f.Disposition == model.DispositionAlert {
			alerts++
		}
	}
	return model.RunSummary{
		RunID:       runID,
		StartedAt:   startedAt,
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Signals:     len(r.Signals),
		NewSignals:  r.SignalsNew,
		Findings:    len(r.Findings),
		Alerts:      alerts,
	}
}

func sortedEvidence(evidence []model.Evidence) []model.Evidence {
	out := append([]model.Evidence(nil), evidence...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
