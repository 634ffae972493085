package model

import "time"

// SignalType categorizes a normalized observation
type SignalType string

const (
	SignalTyposquatDomain     SignalType = "typosquat-domain"     // Lookalike domain candidate
	SignalImpersonationAcct   SignalType = "impersonation-account" // Social/handle impersonation
	SignalNewCertificate      SignalType = "new-certificate"      // CT-observed certificate issuance
	SignalMentionSpike        SignalType = "mention-spike"        // Unusual mention volume
	SignalCodeLeak            SignalType = "code-leak"            // Scoped material in a code host
	SignalPasteExposure       SignalType = "paste-exposure"       // Scoped material on a paste site
	SignalThreatFeedMatch     SignalType = "threat-feed-match"    // External feed hit on a scoped asset
)

// KnownSignalTypes lists every type the pipeline can emit, in stable order.
func KnownSignalTypes() []SignalType {
	return []SignalType{
		SignalTyposquatDomain,
		SignalImpersonationAcct,
		SignalNewCertificate,
		SignalMentionSpike,
		SignalCodeLeak,
		SignalPasteExposure,
		SignalThreatFeedMatch,
	}
}

// Severity is an ordered enumeration: low < medium < high < critical
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordering position of a severity (unknown ranks below low).
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// StepDown returns the next lower severity, never below low.
func (s Severity) StepDown() Severity {
	switch s {
	case SeverityCritical:
		return SeverityHigh
	case SeverityHigh:
		return SeverityMedium
	case SeverityMedium:
		return SeverityLow
	default:
		return SeverityLow
	}
}

// ParseSeverity parses a severity name (case-insensitive via callers lowering).
func ParseSeverity(value string) (Severity, bool) {
	switch Severity(value) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(value), true
	default:
		return "", false
	}
}

// SourceKind identifies where raw evidence was collected from
type SourceKind string

const (
	SourceOffline SourceKind = "offline" // Synthesized without network access
	SourceFixture SourceKind = "fixture" // Replayed from a captured run
	SourceDNS     SourceKind = "dns"
	SourceCT      SourceKind = "ct"
	SourceGithub  SourceKind = "github"
	SourcePaste   SourceKind = "paste"
	SourceSocial  SourceKind = "social"
	SourceFeeds   SourceKind = "feeds"
	SourceLanding SourceKind = "landing" // HTTP probe of candidate landing pages
)

// KnownSourceKinds lists every source kind a scope may allow, in stable order.
func KnownSourceKinds() []SourceKind {
	return []SourceKind{
		SourceOffline,
		SourceFixture,
		SourceDNS,
		SourceCT,
		SourceGithub,
		SourcePaste,
		SourceSocial,
		SourceFeeds,
		SourceLanding,
	}
}

// RawEvidence is an opaque payload handed to the normalizer by a collector.
// It is never retained past signal derivation unless the scope enables
// store_raw.
type RawEvidence struct {
	Ref        string     `json:"ref"`
	Source     SourceKind `json:"source"`
	Detector   string     `json:"detector"`
	Subject    string     `json:"subject"`
	ObservedAt time.Time  `json:"observed_at"`
	Text       string     `json:"text,omitempty"`
	Indicators []string   `json:"indicators,omitempty"`
	URL        string     `json:"url,omitempty"`
	Note       string     `json:"note,omitempty"`
}

// Signal is a normalized observation with a stable identity. Identity-bearing
// fields (ID, Type, Subject, EvidenceRef, Indicators, DedupeKey) are set once
// by the normalizer and never mutated; later stages derive new values instead.
type Signal struct {
	ID                 string     `json:"id"`
	Type               SignalType `json:"type"`
	Subject            string     `json:"subject"`
	Source             SourceKind `json:"source"`
	EvidenceRef        string     `json:"evidence_ref"`
	Timestamp          time.Time  `json:"timestamp"`
	Indicators         []string   `json:"indicators"`
	Confidence         int        `json:"confidence"`
	Severity           Severity   `json:"severity"`
	Rationale          string     `json:"rationale"`
	RecommendedActions []string   `json:"recommended_actions"`
	DedupeKey          string     `json:"dedupe_key"`
	Repeat             bool       `json:"repeat,omitempty"`
	SuppressionReason  string     `json:"suppression_reason,omitempty"`
	PolicyFlags        []string   `json:"policy_flags,omitempty"`
}

// Evidence is the persisted record of what a signal was derived from.
type Evidence struct {
	ID         string     `json:"id"`
	Source     SourceKind `json:"source"`
	ObservedAt time.Time  `json:"observed_at"`
	URL        string     `json:"url,omitempty"`
	Note       string     `json:"note,omitempty"`
	Redacted   bool       `json:"redacted"`
}

// RuleTraceEntry records one correlation rule firing, in evaluation order.
type RuleTraceEntry struct {
	Rule   string `json:"rule"`
	Effect string `json:"effect"`
	Delta  int    `json:"delta"`
}

// Disposition is the terminal policy classification of a finding for one run.
type Disposition string

const (
	DispositionAlert       Disposition = "alert"
	DispositionInvestigate Disposition = "investigate"
	DispositionDigest      Disposition = "digest"
	DispositionSuppressed  Disposition = "suppressed"
)

// Finding is a correlation of one or more signals into an actionable unit.
// It references signal ids, never copies of the signals themselves.
type Finding struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Subject           string           `json:"subject"`
	SignalIDs         []string         `json:"signal_ids"`
	Confidence        int              `json:"confidence"`
	Severity          Severity         `json:"severity"`
	Rationale         string           `json:"rationale"`
	MatchedRules      []string         `json:"matched_rules"`
	RuleTrace         []RuleTraceEntry `json:"rule_trace"`
	Disposition       Disposition      `json:"disposition"`
	PolicyGates       []string         `json:"policy_gates,omitempty"`
	BlockedBy         string           `json:"blocked_by,omitempty"`
	SuppressionReason string           `json:"suppression_reason,omitempty"`
	LastCorroborated  time.Time        `json:"last_corroborated"`
}
