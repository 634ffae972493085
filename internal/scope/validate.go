package scope

import (
	"fmt"
	"regexp"

	"github.com/osprey-sec/osprey/internal/model"
)

// demoSources and demoDetectors are the hard-coded safety floor for demo
// mode: offline-only, fixture-replayable, nothing that touches a live target.
var (
	demoSources   = []model.SourceKind{model.SourceOffline, model.SourceFixture}
	demoDetectors = []string{"typosquat"}
)

// demoRedactRaw is the redaction floor for demo mode: common secret shapes
// are masked whether or not a scope file asks for it.
var demoRedactRaw = []string{
	`AKIA[0-9A-Z]{16}`,
	`(?i)(api[_-]?key|token|secret|password)[=:]\s*\S+`,
	`(?i)bearer\s+[A-Za-z0-9._-]+`,
	`-----BEGIN [A-Z ]*PRIVATE KEY-----`,
}

func demoRedactPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(demoRedactRaw))
	for i, raw := range demoRedactRaw {
		out[i] = regexp.MustCompile(raw)
	}
	return out
}

// Validate checks the scope invariants. KnownDetectors comes from the
// detector registry so that allowlists referencing unknown kinds are rejected
// at validation time, before any collection.
func (s *Scope) Validate(knownDetectors []string) error {
	if len(s.Domains) == 0 && len(s.BrandTerms) == 0 {
		return &model.ScopeError{Reason: "scope must declare at least one of domains or brand_terms"}
	}
	if len(s.AllowedSources) == 0 {
		return &model.ScopeError{Reason: "scope must declare allowed_sources"}
	}
	if len(s.AllowedDetectors) == 0 {
		return &model.ScopeError{Reason: "scope must declare allowed_detectors"}
	}

	known := make(map[model.SourceKind]bool)
	for _, k := range model.KnownSourceKinds() {
		known[k] = true
	}
	for _, src := range s.AllowedSources {
		if !known[src] {
			return &model.ScopeError{Reason: fmt.Sprintf("unknown source kind in allowed_sources: %s", src)}
		}
	}

	knownDet := make(map[string]bool)
	for _, d := range knownDetectors {
		knownDet[d] = true
	}
	for _, det := range s.AllowedDetectors {
		if !knownDet[det] {
			return &model.ScopeError{Reason: fmt.Sprintf("unknown detector in allowed_detectors: %s", det)}
		}
	}

	if !s.Privacy.StoreRaw && len(s.Privacy.RedactPatterns) == 0 {
		return &model.ScopeError{Reason: "privacy.store_raw=false requires redact_patterns to avoid raw data retention"}
	}
	return nil
}

// Demo returns the scope used when no scope file is given. It is an explicit
// safety floor, not a default: offline-only collection, redaction always on.
func Demo() *Scope {
	s := &Scope{
		AllowedSources:   append([]model.SourceKind(nil), demoSources...),
		AllowedDetectors: append([]string(nil), demoDetectors...),
		Privacy: Privacy{
			StoreRaw:          false,
			RedactPatterns:    demoRedactPatterns(),
			RedactPatternsRaw: append([]string(nil), demoRedactRaw...),
			RetentionDays:     7,
		},
	}
	s.applyDefaults()
	return s
}

// SanitizeForDemo clamps a loaded scope to the demo safety floor. The
// original allowlists are discarded, not intersected: demo mode must never
// widen into live collection regardless of what the file says. The demo
// redaction patterns are merged in so redaction is active even when the file
// declares none of its own.
func (s *Scope) SanitizeForDemo() *Scope {
	safe := *s
	safe.AllowedSources = append([]model.SourceKind(nil), demoSources...)
	safe.AllowedDetectors = append([]string(nil), demoDetectors...)
	safe.Privacy.StoreRaw = false

	safe.Privacy.RedactPatterns = append([]*regexp.Regexp(nil), s.Privacy.RedactPatterns...)
	safe.Privacy.RedactPatternsRaw = append([]string(nil), s.Privacy.RedactPatternsRaw...)
	have := make(map[string]bool, len(safe.Privacy.RedactPatternsRaw))
	for _, raw := range safe.Privacy.RedactPatternsRaw {
		have[raw] = true
	}
	for i, raw := range demoRedactRaw {
		if have[raw] {
			continue
		}
		safe.Privacy.RedactPatternsRaw = append(safe.Privacy.RedactPatternsRaw, raw)
		safe.Privacy.RedactPatterns = append(safe.Privacy.RedactPatterns, demoRedactPatterns()[i])
	}
	return &safe
}
