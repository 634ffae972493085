// Package pipeline implements the deterministic core: normalization, stable
// identity, cross-run dedupe, scoring, rule-based correlation with temporal
// decay, policy escalation, and the run manifest. Stages are strictly
// sequential; each consumes the complete output of the previous one.
package pipeline

import (
	"sort"
	"strings"

	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// NormalizeResult carries the canonical signals plus the raw-evidence tallies
// the manifest reports.
type NormalizeResult struct {
	Signals    []model.Signal
	Evidence   []model.Evidence
	Considered int
	Suppressed int
	Malformed  int
	Errors     []error
}

// Normalizer converts heterogeneous raw evidence into canonical signals.
// Negative-keyword suppression happens here, before any identity or score
// computation: a suppressed record never consumes a dedupe slot and never
// appears as a signal, only in the manifest tallies.
type Normalizer struct {
	sc *scope.Scope
}

// NewNormalizer creates a normalizer bound to a validated scope.
func NewNormalizer(sc *scope.Scope) *Normalizer {
	return &Normalizer{sc: sc}
}

// Normalize processes every raw record. Malformed records are skipped and
// counted; identical raw evidence always normalizes to an identical signal.
func (n *Normalizer) Normalize(raw []model.RawEvidence) *NormalizeResult {
	result := &NormalizeResult{}
	for _, rec := range raw {
		result.Considered++

		if err := n.checkShape(rec); err != nil {
			result.Malformed++
			result.Errors = append(result.Errors, err)
			continue
		}
		if n.suppressed(rec) || n.officialAccount(rec) {
			result.Suppressed++
			continue
		}

		sig, ev := n.toSignal(rec)
		result.Signals = append(result.Signals, sig)
		result.Evidence = append(result.Evidence, ev)
	}
	return result
}

func (n *Normalizer) checkShape(rec model.RawEvidence) error {
	if rec.Subject == "" {
		return &model.NormalizationError{Ref: rec.Ref, Reason: "missing subject"}
	}
	if rec.Detector == "" {
		return &model.NormalizationError{Ref: rec.Ref, Reason: "missing detector"}
	}
	if _, ok := detect.SignalTypeFor(rec.Detector, rec.Source); !ok {
		return &model.NormalizationError{Ref: rec.Ref, Reason: "unknown detector: " + rec.Detector}
	}
	if rec.ObservedAt.IsZero() {
		return &model.NormalizationError{Ref: rec.Ref, Reason: "missing observation timestamp"}
	}
	return nil
}

// suppressed reports whether the record's primary text matches any negative
// keyword, case-insensitively.
func (n *Normalizer) suppressed(rec model.RawEvidence) bool {
	if len(n.sc.NegativeKeywords) == 0 {
		return false
	}
	text := strings.ToLower(rec.Text)
	note := strings.ToLower(rec.Note)
	for _, kw := range n.sc.NegativeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) || strings.Contains(note, kw) {
			return true
		}
	}
	return false
}

// officialAccount reports whether an impersonation record names one of the
// client's own handles. A verified account is not an impersonator; dropping it
// here keeps it out of dedupe history entirely.
func (n *Normalizer) officialAccount(rec model.RawEvidence) bool {
	sigType, ok := detect.SignalTypeFor(rec.Detector, rec.Source)
	if !ok || sigType != model.SignalImpersonationAcct {
		return false
	}
	subject := canonicalHandle(rec.Subject)
	for _, h := range n.sc.OfficialHandles {
		if canonicalHandle(h) == subject {
			return true
		}
	}
	return false
}

func canonicalHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// watchKeywordIndicators derives one indicator per scope watch keyword found
// in the record's text or note. Keywords are matched case-insensitively and
// the result is sorted so identity derivation stays stable.
func (n *Normalizer) watchKeywordIndicators(rec model.RawEvidence) []string {
	if len(n.sc.WatchKeywords) == 0 {
		return nil
	}
	text := strings.ToLower(rec.Text)
	note := strings.ToLower(rec.Note)
	var out []string
	for _, kw := range n.sc.WatchKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) || strings.Contains(note, kw) {
			out = append(out, "watch_keyword="+kw)
		}
	}
	sort.Strings(out)
	return out
}

func (n *Normalizer) toSignal(rec model.RawEvidence) (model.Signal, model.Evidence) {
	sigType, _ := detect.SignalTypeFor(rec.Detector, rec.Source)

	indicators := append([]string(nil), rec.Indicators...)
	indicators = append(indicators, n.watchKeywordIndicators(rec)...)
	url := rec.URL
	note := rec.Note
	if n.sc.RedactionActive() {
		indicators = n.sc.RedactAll(indicators)
		url = n.sc.Redact(url)
		note = n.sc.Redact(note)
	}

	evidenceRef := rec.Ref
	if evidenceRef == "" {
		evidenceRef = identity.EvidenceRef(sigType, rec.Subject, indicators)
	}

	sig := model.Signal{
		ID:          identity.SignalID(sigType, rec.Subject, evidenceRef, indicators),
		Type:        sigType,
		Subject:     rec.Subject,
		Source:      rec.Source,
		EvidenceRef: evidenceRef,
		Timestamp:   rec.ObservedAt.UTC(),
		Indicators:  indicators,
		DedupeKey:   identity.DedupeKey(sigType, rec.Subject, indicators),
	}
	ev := model.Evidence{
		ID:         evidenceRef,
		Source:     rec.Source,
		ObservedAt: rec.ObservedAt.UTC(),
		URL:        url,
		Note:       note,
		Redacted:   n.sc.RedactionActive(),
	}
	return sig, ev
}
