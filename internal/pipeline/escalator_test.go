package pipeline

import (
	"testing"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

func testPolicy() scope.Policy {
	return scope.Policy{
		MinConfidenceAlert: 80,
		MinSeverityAlert:   model.SeverityHigh,
		DecayWindowDays:    30,
	}
}

func finding(conf int, sev model.Severity, gates ...string) model.Finding {
	return model.Finding{
		ID:          "fnd_x",
		Confidence:  conf,
		Severity:    sev,
		PolicyGates: gates,
	}
}

func TestEscalateAlert(t *testing.T) {
	e := NewEscalator(testPolicy())
	f := e.Escalate(finding(85, model.SeverityHigh, gateCorroborated))
	if f.Disposition != model.DispositionAlert {
		t.Errorf("disposition = %s, want alert", f.Disposition)
	}
}

func TestEscalateSuppressionPrecedesAlert(t *testing.T) {
	e := NewEscalator(testPolicy())
	f := finding(95, model.SeverityCritical, gateCorroborated)
	f.SuppressionReason = suppressGenericToken
	f = e.Escalate(f)
	if f.Disposition != model.DispositionSuppressed {
		t.Errorf("disposition = %s, suppression must take precedence over alert", f.Disposition)
	}
}

func TestEscalatePolicyBlockList(t *testing.T) {
	policy := testPolicy()
	policy.Suppress = []string{"examp1e.com", "mention-spike-alone"}
	e := NewEscalator(policy)

	blocked := finding(95, model.SeverityCritical, gateCorroborated)
	blocked.Subject = "examp1e.com"
	blocked = e.Escalate(blocked)
	if blocked.Disposition != model.DispositionSuppressed {
		t.Errorf("disposition = %s, blocked subject must suppress even above alert thresholds", blocked.Disposition)
	}
	if blocked.SuppressionReason != suppressPolicyBlock {
		t.Errorf("suppression reason = %q, want %q", blocked.SuppressionReason, suppressPolicyBlock)
	}

	byRule := finding(90, model.SeverityHigh, gateCorroborated)
	byRule.Subject = "other.com"
	byRule.MatchedRules = []string{"mention-spike-alone"}
	if got := e.Escalate(byRule).Disposition; got != model.DispositionSuppressed {
		t.Errorf("disposition = %s, blocked rule name must suppress", got)
	}

	clean := finding(90, model.SeverityHigh, gateCorroborated)
	clean.Subject = "unrelated.com"
	if got := e.Escalate(clean).Disposition; got != model.DispositionAlert {
		t.Errorf("disposition = %s, unblocked finding must still alert", got)
	}
}

func TestEscalateUncorroboratedAlertBecomesInvestigate(t *testing.T) {
	e := NewEscalator(testPolicy())
	f := e.Escalate(finding(90, model.SeverityHigh, gateUncorroborated))
	if f.Disposition != model.DispositionInvestigate {
		t.Errorf("disposition = %s, want investigate", f.Disposition)
	}
	if f.BlockedBy != gateUncorroborated {
		t.Errorf("blocked_by = %q, downgrade reason must be recorded", f.BlockedBy)
	}
}

func TestEscalateRuleNotAlertEligible(t *testing.T) {
	e := NewEscalator(testPolicy())
	f := e.Escalate(finding(95, model.SeverityHigh, gateCorroborated, gateNotAlertable))
	if f.Disposition == model.DispositionAlert {
		t.Error("non-alert-eligible rule must not produce an alert")
	}
}

func TestEscalateOldDomainDigestPreference(t *testing.T) {
	e := NewEscalator(testPolicy())
	f := e.Escalate(finding(95, model.SeverityHigh, gateCorroborated, flagOldDomainDigest))
	if f.Disposition != model.DispositionDigest {
		t.Errorf("disposition = %s, old-domain findings prefer digest", f.Disposition)
	}
}

func TestEscalateInvestigateBands(t *testing.T) {
	e := NewEscalator(testPolicy())
	cases := []struct {
		name string
		f    model.Finding
		want model.Disposition
	}{
		{"medium severity", finding(30, model.SeverityMedium, gateUncorroborated), model.DispositionInvestigate},
		{"near threshold", finding(72, model.SeverityLow, gateUncorroborated), model.DispositionInvestigate},
		{"low and far", finding(40, model.SeverityLow, gateUncorroborated), model.DispositionDigest},
	}
	for _, tc := range cases {
		if got := e.Escalate(tc.f).Disposition; got != tc.want {
			t.Errorf("%s: disposition = %s, want %s", tc.name, got, tc.want)
		}
	}
}

