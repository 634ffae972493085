// Package scope loads and validates the authorization boundary for one
// client's monitoring. A validated Scope gates all downstream work: it is
// loaded once per run, immutable thereafter, and hashed into the manifest.
package scope

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
)

// Scope is the parsed, validated authorization and configuration unit.
type Scope struct {
	BrandTerms       []string
	Domains          []string
	Products         []string
	OfficialHandles  []string
	AllowedSources   []model.SourceKind
	AllowedDetectors []string
	WatchKeywords    []string
	NegativeKeywords []string
	Privacy          Privacy
	Policy           Policy
	RateLimits       RateLimits
	Sources          SourceTuning
	Typosquat        TyposquatTuning
}

// Privacy controls raw retention and redaction.
type Privacy struct {
	StoreRaw          bool
	RedactPatterns    []*regexp.Regexp
	RedactPatternsRaw []string
	RetentionDays     int
}

// Policy holds the thresholds and suppression knobs the escalator consumes.
// Suppress lists subjects or rule names the client has explicitly blocked;
// matching findings are always dispositioned Suppressed.
type Policy struct {
	MinConfidenceAlert int
	MinSeverityAlert   model.Severity
	DigestFrequency    string
	DecayWindowDays    int
	Suppress           []string
	Typosquat          TyposquatPolicy
}

// TyposquatPolicy tunes generic-token suppression and old-domain handling.
type TyposquatPolicy struct {
	GenericTokens []string
	OldDomainDays int
}

// RateLimits sets per-source minimum inter-request intervals in milliseconds.
type RateLimits struct {
	GithubMinIntervalMS  int `yaml:"github_min_interval_ms"`
	PasteMinIntervalMS   int `yaml:"paste_min_interval_ms"`
	CTMinIntervalMS      int `yaml:"ct_min_interval_ms"`
	LandingMinIntervalMS int `yaml:"landing_min_interval_ms"`
}

// SourceTuning carries per-source trust multipliers and the collection
// concurrency ceiling.
type SourceTuning struct {
	Trust         map[string]float64 `yaml:"trust"`
	MaxConcurrent int                `yaml:"max_concurrent"`
}

// TyposquatTuning configures the candidate generator and distance weighting.
type TyposquatTuning struct {
	Locale         string `yaml:"locale"`
	DistanceWeight int    `yaml:"distance_weight"`
}

type scopeRaw struct {
	BrandTerms       []string     `yaml:"brand_terms"`
	Domains          []string     `yaml:"domains"`
	Products         []string     `yaml:"products"`
	OfficialHandles  []string     `yaml:"official_handles"`
	AllowedSources   []string     `yaml:"allowed_sources"`
	AllowedDetectors []string     `yaml:"allowed_detectors"`
	WatchKeywords    []string     `yaml:"watch_keywords"`
	NegativeKeywords []string     `yaml:"negative_keywords"`
	Privacy          privacyRaw   `yaml:"privacy"`
	Policy           policyRaw    `yaml:"policy"`
	RateLimits       RateLimits   `yaml:"rate_limits"`
	Sources          SourceTuning `yaml:"sources"`
	Typosquat        TyposquatTuning `yaml:"typosquat"`
}

type privacyRaw struct {
	StoreRaw       bool     `yaml:"store_raw"`
	RedactPatterns []string `yaml:"redact_patterns"`
	RetentionDays  int      `yaml:"max_evidence_retention_days"`
}

type policyRaw struct {
	MinConfidenceAlert int                `yaml:"min_confidence_alert"`
	MinSeverityAlert   string             `yaml:"min_severity_alert"`
	DigestFrequency    string             `yaml:"digest_frequency"`
	DecayWindowDays    int                `yaml:"decay_window_days"`
	Suppress           []string           `yaml:"suppress"`
	Typosquat          typosquatPolicyRaw `yaml:"typosquat"`
}

type typosquatPolicyRaw struct {
	GenericTokens []string `yaml:"generic_tokens"`
	OldDomainDays int      `yaml:"old_domain_days"`
}

// Load reads and parses a scope file. Validation is a separate step so that
// demo mode can sanitize first.
func Load(path string) (*Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ScopeError{Reason: fmt.Sprintf("read %s: %v", path, err)}
	}
	return Parse(data)
}

// Parse builds a Scope from YAML bytes.
func Parse(data []byte) (*Scope, error) {
	var raw scopeRaw
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &model.ScopeError{Reason: fmt.Sprintf("parse scope: %v", err)}
	}
	return fromRaw(raw)
}

func fromRaw(raw scopeRaw) (*Scope, error) {
	compiled := make([]*regexp.Regexp, 0, len(raw.Privacy.RedactPatterns))
	for _, pat := range raw.Privacy.RedactPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, &model.ScopeError{Reason: fmt.Sprintf("invalid redact pattern %q: %v", pat, err)}
		}
		compiled = append(compiled, re)
	}

	minSev := model.SeverityHigh
	if v := strings.TrimSpace(strings.ToLower(raw.Policy.MinSeverityAlert)); v != "" {
		sev, ok := model.ParseSeverity(v)
		if !ok {
			return nil, &model.ScopeError{Reason: fmt.Sprintf("invalid min_severity_alert: %s", raw.Policy.MinSeverityAlert)}
		}
		minSev = sev
	}

	sources := make([]model.SourceKind, 0, len(raw.AllowedSources))
	for _, s := range raw.AllowedSources {
		sources = append(sources, model.SourceKind(strings.ToLower(strings.TrimSpace(s))))
	}
	detectors := make([]string, 0, len(raw.AllowedDetectors))
	for _, d := range raw.AllowedDetectors {
		detectors = append(detectors, strings.ToLower(strings.TrimSpace(d)))
	}

	scope := &Scope{
		BrandTerms:       raw.BrandTerms,
		Domains:          raw.Domains,
		Products:         raw.Products,
		OfficialHandles:  raw.OfficialHandles,
		AllowedSources:   sources,
		AllowedDetectors: detectors,
		WatchKeywords:    raw.WatchKeywords,
		NegativeKeywords: raw.NegativeKeywords,
		Privacy: Privacy{
			StoreRaw:          raw.Privacy.StoreRaw,
			RedactPatterns:    compiled,
			RedactPatternsRaw: raw.Privacy.RedactPatterns,
			RetentionDays:     raw.Privacy.RetentionDays,
		},
		Policy: Policy{
			MinConfidenceAlert: raw.Policy.MinConfidenceAlert,
			MinSeverityAlert:   minSev,
			DigestFrequency:    raw.Policy.DigestFrequency,
			DecayWindowDays:    raw.Policy.DecayWindowDays,
			Suppress:           lowered(raw.Policy.Suppress),
			Typosquat: TyposquatPolicy{
				GenericTokens: lowered(raw.Policy.Typosquat.GenericTokens),
				OldDomainDays: raw.Policy.Typosquat.OldDomainDays,
			},
		},
		RateLimits: raw.RateLimits,
		Sources:    raw.Sources,
		Typosquat:  raw.Typosquat,
	}
	scope.applyDefaults()
	return scope, nil
}

func (s *Scope) applyDefaults() {
	if s.Privacy.RetentionDays == 0 {
		s.Privacy.RetentionDays = 30
	}
	if s.Policy.MinConfidenceAlert == 0 {
		s.Policy.MinConfidenceAlert = 80
	}
	if s.Policy.DigestFrequency == "" {
		s.Policy.DigestFrequency = "daily"
	}
	if s.Policy.DecayWindowDays == 0 {
		s.Policy.DecayWindowDays = 30
	}
	if len(s.Policy.Typosquat.GenericTokens) == 0 {
		s.Policy.Typosquat.GenericTokens = defaultGenericTokens()
	}
	if s.Policy.Typosquat.OldDomainDays == 0 {
		s.Policy.Typosquat.OldDomainDays = 180
	}
	if s.RateLimits.GithubMinIntervalMS == 0 {
		s.RateLimits.GithubMinIntervalMS = 1000
	}
	if s.RateLimits.PasteMinIntervalMS == 0 {
		s.RateLimits.PasteMinIntervalMS = 800
	}
	if s.RateLimits.CTMinIntervalMS == 0 {
		s.RateLimits.CTMinIntervalMS = 500
	}
	if s.RateLimits.LandingMinIntervalMS == 0 {
		s.RateLimits.LandingMinIntervalMS = 500
	}
	if s.Sources.MaxConcurrent == 0 {
		s.Sources.MaxConcurrent = 4
	}
	if s.Typosquat.Locale == "" {
		s.Typosquat.Locale = "us"
	}
}

// TrustFor returns the scope-configured trust multiplier for a source,
// defaulting to 1.0.
func (s *Scope) TrustFor(source model.SourceKind) float64 {
	if s.Sources.Trust == nil {
		return 1.0
	}
	if w, ok := s.Sources.Trust[string(source)]; ok && w > 0 {
		return w
	}
	return 1.0
}

// AllowsSource reports whether the scope authorizes a source kind.
func (s *Scope) AllowsSource(kind model.SourceKind) bool {
	for _, allowed := range s.AllowedSources {
		if allowed == kind {
			return true
		}
	}
	return false
}

// AllowsDetector reports whether the scope authorizes a detector.
func (s *Scope) AllowsDetector(name string) bool {
	name = strings.ToLower(name)
	for _, allowed := range s.AllowedDetectors {
		if allowed == name {
			return true
		}
	}
	return false
}

// HashPayload returns the canonical representation the scope hash is computed
// over. Compiled regexes are represented by their raw patterns so the hash is
// a pure function of the file's semantic content.
func (s *Scope) HashPayload() map[string]interface{} {
	return map[string]interface{}{
		"brand_terms":       s.BrandTerms,
		"domains":           s.Domains,
		"products":          s.Products,
		"official_handles":  s.OfficialHandles,
		"allowed_sources":   sourceNames(s.AllowedSources),
		"allowed_detectors": s.AllowedDetectors,
		"watch_keywords":    s.WatchKeywords,
		"negative_keywords": s.NegativeKeywords,
		"privacy": map[string]interface{}{
			"store_raw":                   s.Privacy.StoreRaw,
			"redact_patterns":             s.Privacy.RedactPatternsRaw,
			"max_evidence_retention_days": s.Privacy.RetentionDays,
		},
		"policy": map[string]interface{}{
			"min_confidence_alert": s.Policy.MinConfidenceAlert,
			"min_severity_alert":   string(s.Policy.MinSeverityAlert),
			"digest_frequency":     s.Policy.DigestFrequency,
			"decay_window_days":    s.Policy.DecayWindowDays,
			"suppress":             s.Policy.Suppress,
			"typosquat": map[string]interface{}{
				"generic_tokens":  s.Policy.Typosquat.GenericTokens,
				"old_domain_days": s.Policy.Typosquat.OldDomainDays,
			},
		},
		"rate_limits": map[string]interface{}{
			"github_min_interval_ms":  s.RateLimits.GithubMinIntervalMS,
			"paste_min_interval_ms":   s.RateLimits.PasteMinIntervalMS,
			"ct_min_interval_ms":      s.RateLimits.CTMinIntervalMS,
			"landing_min_interval_ms": s.RateLimits.LandingMinIntervalMS,
		},
		"sources": map[string]interface{}{
			"trust":          s.Sources.Trust,
			"max_concurrent": s.Sources.MaxConcurrent,
		},
		"typosquat": map[string]interface{}{
			"locale":          s.Typosquat.Locale,
			"distance_weight": s.Typosquat.DistanceWeight,
		},
	}
}

// Hash computes the scope fingerprint recorded in every manifest.
func (s *Scope) Hash() (string, error) {
	h, err := identity.HashCanonical(s.HashPayload())
	if err != nil {
		return "", &model.HashingError{Err: err}
	}
	return h, nil
}

func sourceNames(kinds []model.SourceKind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func lowered(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}

func defaultGenericTokens() []string {
	return []string{"login", "secure", "support", "billing", "account", "verify"}
}
