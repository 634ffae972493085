package pipeline

import (
	"testing"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
)

func sig(id string, t model.SignalType, subject string, conf int, sev model.Severity, indicators ...string) model.Signal {
	return model.Signal{
		ID:         id,
		Type:       t,
		Subject:    subject,
		Confidence: conf,
		Severity:   sev,
		Indicators: indicators,
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCorrelateTyposquatCertLanding(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	findings := c.Correlate([]model.Signal{
		sig("sig_a", model.SignalTyposquatDomain, "example.com", 60, model.SeverityMedium, "candidate=examp1e.com", "landing_similarity=title"),
		sig("sig_b", model.SignalNewCertificate, "example.com", 50, model.SeverityMedium, "candidate=examp1e.com"),
	})
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	f := findings[0]
	if f.Severity != model.SeverityHigh {
		t.Errorf("severity = %s, want high floor", f.Severity)
	}
	if f.Confidence != 85 {
		t.Errorf("confidence = %d, want 60+25=85", f.Confidence)
	}
	if len(f.MatchedRules) != 1 || f.MatchedRules[0] != "typosquat-cert-landing" {
		t.Errorf("matched rules = %v", f.MatchedRules)
	}
	if len(f.RuleTrace) == 0 {
		t.Fatal("rule trace empty; trace is required output")
	}
	if f.RuleTrace[0].Rule != "typosquat-cert-landing" || f.RuleTrace[0].Delta != 25 {
		t.Errorf("trace[0] = %+v", f.RuleTrace[0])
	}
	if !hasGate(f, "corroborated") {
		t.Error("two distinct signal types should corroborate")
	}
}

func TestCorrelateMentionSpikeAloneNeverAlertEligible(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	findings := c.Correlate([]model.Signal{
		sig("sig_m", model.SignalMentionSpike, "example.com", 95, model.SeverityLow),
	})
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if !hasGate(findings[0], gateNotAlertable) {
		t.Error("mention-spike alone must be gated from alerting")
	}
	if findings[0].Severity != model.SeverityLow {
		t.Errorf("severity = %s, want low", findings[0].Severity)
	}
}

func TestCorrelateImpersonationMention(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	findings := c.Correlate([]model.Signal{
		sig("sig_i", model.SignalImpersonationAcct, "example", 55, model.SeverityMedium),
		sig("sig_m", model.SignalMentionSpike, "example", 40, model.SeverityLow),
	})
	f := findings[0]
	if f.Severity.Rank() < model.SeverityMedium.Rank() {
		t.Errorf("severity = %s, want at least medium", f.Severity)
	}
	if f.Confidence != 70 {
		t.Errorf("confidence = %d, want 55+15=70", f.Confidence)
	}
	if f.MatchedRules[0] != "impersonation-mention" {
		t.Errorf("matched rules = %v", f.MatchedRules)
	}
}

func TestCorroborationGateDowngradesLoneHigh(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	findings := c.Correlate([]model.Signal{
		sig("sig_t", model.SignalThreatFeedMatch, "example.com", 75, model.SeverityHigh),
	})
	f := findings[0]
	if f.Severity != model.SeverityMedium {
		t.Errorf("severity = %s, lone high-eligible signal must downgrade to medium", f.Severity)
	}
	foundTrace := false
	for _, entry := range f.RuleTrace {
		if entry.Rule == ruleNameCorroborate {
			foundTrace = true
		}
	}
	if !foundTrace {
		t.Error("downgrade must be recorded in the rule trace")
	}
}

func TestCorrelateGroupsBySubject(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	findings := c.Correlate([]model.Signal{
		sig("sig_1", model.SignalTyposquatDomain, "example.com", 60, model.SeverityMedium),
		sig("sig_2", model.SignalTyposquatDomain, "example.org", 60, model.SeverityMedium),
	})
	if len(findings) != 2 {
		t.Fatalf("findings = %d, want one per subject", len(findings))
	}
	if findings[0].ID >= findings[1].ID {
		t.Error("findings not sorted by id")
	}
}

func TestCorrelateSuppressionPropagatesOnlyWhenAllSuppressed(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	suppressed := sig("sig_s", model.SignalTyposquatDomain, "example.com", 60, model.SeverityMedium)
	suppressed.SuppressionReason = suppressGenericToken
	clean := sig("sig_c", model.SignalNewCertificate, "example.com", 50, model.SeverityMedium)

	mixed := c.Correlate([]model.Signal{suppressed, clean})
	if mixed[0].SuppressionReason != "" {
		t.Error("one clean signal must keep the finding live")
	}

	all := c.Correlate([]model.Signal{suppressed})
	if all[0].SuppressionReason != suppressGenericToken {
		t.Errorf("suppression reason = %q, want propagated", all[0].SuppressionReason)
	}
}

func TestCorrelateDeterministicFindingIDs(t *testing.T) {
	c := NewCorrelator(BaselineRules())
	in := []model.Signal{
		sig("sig_a", model.SignalTyposquatDomain, "example.com", 60, model.SeverityMedium, "landing_similarity=title"),
		sig("sig_b", model.SignalNewCertificate, "example.com", 50, model.SeverityMedium),
	}
	first := c.Correlate(in)
	reversed := c.Correlate([]model.Signal{in[1], in[0]})
	if first[0].ID != reversed[0].ID {
		t.Errorf("finding id depends on input order: %s vs %s", first[0].ID, reversed[0].ID)
	}
}
