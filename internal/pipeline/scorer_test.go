package pipeline

import (
	"strings"
	"testing"

	"github.com/osprey-sec/osprey/internal/model"
)

func scoredSignal(t *testing.T, extra string, raw ...model.RawEvidence) []model.Signal {
	t.Helper()
	sc := testScope(t, extra)
	normalized := NewNormalizer(sc).Normalize(raw)
	if len(normalized.Signals) != len(raw) {
		t.Fatalf("normalized %d of %d records", len(normalized.Signals), len(raw))
	}
	return NewScorer(sc).ScoreAll(normalized.Signals)
}

func TestScoreTyposquatDistanceWeight(t *testing.T) {
	// examp1e.com is one edit from example.com: base 60 plus 2x the default
	// distance weight of 5.
	signals := scoredSignal(t, "", rawTyposquat("examp1e.com"))
	if signals[0].Confidence != 70 {
		t.Errorf("confidence = %d, want 70", signals[0].Confidence)
	}
	if signals[0].Severity != model.SeverityMedium {
		t.Errorf("severity = %s, want medium", signals[0].Severity)
	}
	if signals[0].Rationale == "" {
		t.Error("rationale empty")
	}
}

func TestScoreTrustMultiplier(t *testing.T) {
	signals := scoredSignal(t, `
sources:
  trust:
    offline: 0.5
`, rawTyposquat("exmple.com"))
	// exmple.com is one omission away: 60 + 10, halved by trust.
	if signals[0].Confidence != 35 {
		t.Errorf("confidence = %d, want 35", signals[0].Confidence)
	}
}

func TestScoreWatchKeywordBoost(t *testing.T) {
	raw := model.RawEvidence{
		Ref:        "social:mention:3",
		Source:     model.SourceSocial,
		Detector:   "mention-watch",
		Subject:    "example.com",
		ObservedAt: obsTime(),
		Text:       "spike mentioning the Example login page",
	}
	signals := scoredSignal(t, `watch_keywords: ["login"]`, raw)
	// mention-spike base 40 plus the watch-keyword boost.
	if signals[0].Confidence != 45 {
		t.Errorf("confidence = %d, want 45", signals[0].Confidence)
	}
	if !strings.Contains(signals[0].Rationale, "watch keyword") {
		t.Errorf("rationale missing watch keyword entry: %s", signals[0].Rationale)
	}
}

func TestScoreGenericTokenDowngradeUncorroborated(t *testing.T) {
	signals := scoredSignal(t, "", rawTyposquat("example-login.com"))
	sig := signals[0]
	if sig.SuppressionReason != "generic_token_uncorroborated" {
		t.Errorf("suppression reason = %q", sig.SuppressionReason)
	}
	if sig.Confidence > 60 {
		t.Errorf("confidence = %d, want capped at 60", sig.Confidence)
	}
	if sig.Severity.Rank() > model.SeverityMedium.Rank() {
		t.Errorf("severity = %s, want at most medium", sig.Severity)
	}
}

func TestScoreGenericTokenCorroboratedNotDowngraded(t *testing.T) {
	cert := model.RawEvidence{
		Ref:        "ct:example-login.com",
		Source:     model.SourceCT,
		Detector:   "cert-watch",
		Subject:    "example.com",
		ObservedAt: obsTime(),
		Indicators: []string{"candidate=example-login.com"},
	}
	signals := scoredSignal(t, "", rawTyposquat("example-login.com"), cert)
	for _, sig := range signals {
		if sig.Type == model.SignalTyposquatDomain && sig.SuppressionReason != "" {
			t.Errorf("corroborated generic-token candidate still suppressed: %s", sig.SuppressionReason)
		}
	}
}

func TestScoreOldDomainCapAndFlag(t *testing.T) {
	raw := rawTyposquat("examp1e.com")
	raw.Indicators = append(raw.Indicators, "domain_age_days=400")
	signals := scoredSignal(t, "", raw)
	sig := signals[0]
	if sig.Confidence > 50 {
		t.Errorf("confidence = %d, want capped at 50 for old domain", sig.Confidence)
	}
	found := false
	for _, flag := range sig.PolicyFlags {
		if flag == "prefer_digest:old_domain" {
			found = true
		}
	}
	if !found {
		t.Errorf("policy flags = %v, want old-domain digest preference", sig.PolicyFlags)
	}
}

func TestScoreNeverRaisesSeverityAboveBase(t *testing.T) {
	signals := scoredSignal(t, `
sources:
  trust:
    offline: 2.0
`, rawTyposquat("examp1e.com"))
	if signals[0].Severity != model.SeverityMedium {
		t.Errorf("severity = %s, scoring must not raise above the base", signals[0].Severity)
	}
	if signals[0].Confidence > 100 {
		t.Errorf("confidence = %d, want clamped to 100", signals[0].Confidence)
	}
}

func TestScoreRecommendedActionsPerType(t *testing.T) {
	signals := scoredSignal(t, "", rawTyposquat("examp1e.com"))
	if len(signals[0].RecommendedActions) == 0 {
		t.Fatal("no recommended actions")
	}
	if !strings.Contains(signals[0].RecommendedActions[0], "WHOIS") {
		t.Errorf("unexpected first action: %s", signals[0].RecommendedActions[0])
	}
}
