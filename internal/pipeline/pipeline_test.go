package pipeline

import (
	"bytes"
	"testing"
	"time"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/source"
	"github.com/osprey-sec/osprey/internal/store"
)

func runWindow() model.RunWindow {
	return model.RunWindow{
		Start: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

// scenarioEvidence is the canonical escalation scenario: a typosquat candidate one edit
// from the scoped domain, a matching certificate, and a live landing page.
func scenarioEvidence() []model.RawEvidence {
	return []model.RawEvidence{
		rawTyposquat("examp1e.com"),
		{
			Ref:        "ct:examp1e.com",
			Source:     model.SourceCT,
			Detector:   "cert-watch",
			Subject:    "example.com",
			ObservedAt: obsTime(),
			Indicators: []string{"candidate=examp1e.com"},
		},
		{
			Ref:        "landing:example.com->examp1e.com",
			Source:     model.SourceLanding,
			Detector:   "typosquat",
			Subject:    "example.com",
			ObservedAt: obsTime(),
			Indicators: []string{"candidate=examp1e.com", "landing_similarity=title"},
		},
	}
}

func runOnce(t *testing.T, history store.History, raw []model.RawEvidence) *RunResult {
	t.Helper()
	sc := testScope(t, "")
	p := NewPipeline(sc, history)
	collected := &source.CollectResult{Raw: raw, Detectors: []string{"typosquat", "cert-watch"}}
	result, err := p.Run(collected, runWindow(), runWindow().End, "scopehash", "confighash", 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestRunTyposquatCertLandingAlerts(t *testing.T) {
	result := runOnce(t, store.NewMemoryStore(), scenarioEvidence())

	if len(result.Signals) != 3 {
		t.Fatalf("signals = %d, want 3", len(result.Signals))
	}
	if len(result.Findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(result.Findings))
	}
	f := result.Findings[0]
	if f.Severity != model.SeverityHigh {
		t.Errorf("severity = %s, want high", f.Severity)
	}
	if f.Disposition != model.DispositionAlert {
		t.Errorf("disposition = %s, want alert (confidence %d)", f.Disposition, f.Confidence)
	}
	if len(f.SignalIDs) != 3 {
		t.Errorf("finding cites %d signals, want 3", len(f.SignalIDs))
	}
	if f.MatchedRules[0] != "typosquat-cert-landing" {
		t.Errorf("matched rules = %v", f.MatchedRules)
	}
}

func TestRunNegativeKeywordSuppressedButTallied(t *testing.T) {
	sc := testScope(t, `negative_keywords: ["careers"]`)
	p := NewPipeline(sc, store.NewMemoryStore())
	raw := []model.RawEvidence{{
		Ref:        "social:careers",
		Source:     model.SourceSocial,
		Detector:   "mention-watch",
		Subject:    "example.com",
		ObservedAt: obsTime(),
		Text:       "careers at example.com",
	}}

	result, err := p.Run(&source.CollectResult{Raw: raw}, runWindow(), runWindow().End, "s", "c", 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Signals) != 0 {
		t.Errorf("suppressed evidence produced %d signals", len(result.Signals))
	}
	if result.Manifest.RawConsidered != 1 || result.Manifest.RawSuppressed != 1 {
		t.Errorf("tallies = considered %d suppressed %d, want 1/1",
			result.Manifest.RawConsidered, result.Manifest.RawSuppressed)
	}
}

func TestRunDeterministicOutput(t *testing.T) {
	first := runOnce(t, store.NewMemoryStore(), scenarioEvidence())
	second := runOnce(t, store.NewMemoryStore(), scenarioEvidence())

	a, err := identity.StableJSON(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := identity.StableJSON(second)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two runs over identical inputs produced different output")
	}
}

func TestRunDedupeIdempotence(t *testing.T) {
	history := store.NewMemoryStore()

	first := runOnce(t, store.NewMemoryStore(), scenarioEvidence())
	if first.SignalsNew != 3 || first.SignalsRepeat != 0 {
		t.Fatalf("first run: new %d repeat %d, want 3/0", first.SignalsNew, first.SignalsRepeat)
	}

	// Persist the first run exactly as the CLI would: records keep their
	// observation timestamps, which fall inside the run window.
	records := first.SignalRecords("run_1")
	if err := history.SaveRun(first.Summary("run_1", runWindow().End, runWindow()), records); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := runOnce(t, history, scenarioEvidence())
	if second.SignalsNew != 0 {
		t.Errorf("second run new = %d, want 0", second.SignalsNew)
	}
	if second.SignalsRepeat != 3 {
		t.Errorf("second run repeats = %d, want 3", second.SignalsRepeat)
	}
	for _, sig := range second.Signals {
		if !sig.Repeat {
			t.Errorf("signal %s not tagged repeat", sig.ID)
		}
	}
}

func TestRunWithinRunDuplicateCollapsed(t *testing.T) {
	raw := scenarioEvidence()
	raw = append(raw, raw[0])
	result := runOnce(t, store.NewMemoryStore(), raw)
	if len(result.Signals) != 3 {
		t.Errorf("signals = %d, duplicate raw evidence must collapse to one signal", len(result.Signals))
	}
	if result.Manifest.RawConsidered != 4 {
		t.Errorf("considered = %d, want 4", result.Manifest.RawConsidered)
	}
}

func TestRunManifestFields(t *testing.T) {
	result := runOnce(t, store.NewMemoryStore(), scenarioEvidence())
	m := result.Manifest
	if m.Version != model.Version {
		t.Errorf("version = %s", m.Version)
	}
	if m.ScopeHash != "scopehash" || m.ConfigHash != "confighash" {
		t.Error("scope/config hashes not carried into manifest")
	}
	if len(m.Detectors) != 2 || m.Detectors[0] != "cert-watch" {
		t.Errorf("detectors = %v, want sorted list", m.Detectors)
	}
	if len(m.EvidenceHashes) != 3 {
		t.Errorf("evidence hashes = %d, want 3", len(m.EvidenceHashes))
	}
	for i := 1; i < len(m.EvidenceHashes); i++ {
		if m.EvidenceHashes[i-1].Name > m.EvidenceHashes[i].Name {
			t.Error("evidence hashes not ordered")
		}
	}
	if m.SignalsNew != 3 || m.Findings != 1 {
		t.Errorf("counts new=%d findings=%d", m.SignalsNew, m.Findings)
	}
}

func TestRunSignalsSorted(t *testing.T) {
	result := runOnce(t, store.NewMemoryStore(), scenarioEvidence())
	for i := 1; i < len(result.Signals); i++ {
		if result.Signals[i-1].ID > result.Signals[i].ID {
			t.Fatal("signals not sorted by id")
		}
	}
}
