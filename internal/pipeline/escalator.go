package pipeline

import (
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// nearThresholdBand is how far below the alert confidence threshold a finding
// can sit and still rate Investigate instead of Digest.
const nearThresholdBand = 10

// suppressPolicyBlock records that the scope's policy.suppress list matched
// the finding's subject or a matched rule name.
const suppressPolicyBlock = "policy_block"

// Escalator applies policy thresholds and suppression to produce a terminal
// disposition per finding per run. Suppression takes precedence over every
// other disposition, including alert-threshold matches.
type Escalator struct {
	policy scope.Policy
}

// NewEscalator creates an escalator bound to the scope's policy.
func NewEscalator(policy scope.Policy) *Escalator {
	return &Escalator{policy: policy}
}

// EscalateAll dispositions every finding, returning a new slice.
func (e *Escalator) EscalateAll(findings []model.Finding) []model.Finding {
	out := make([]model.Finding, len(findings))
	for i, f := range findings {
		out[i] = e.Escalate(f)
	}
	return out
}

// Escalate assigns the disposition. Precedence: Suppressed, then the
// old-domain digest preference, then Alert, then Investigate, then Digest.
// An alert-eligible score without corroboration is downgraded to Investigate
// with the blocking reason recorded.
func (e *Escalator) Escalate(f model.Finding) model.Finding {
	if e.policyBlocked(f) {
		f.Disposition = model.DispositionSuppressed
		if f.SuppressionReason == "" {
			f.SuppressionReason = suppressPolicyBlock
		}
		return f
	}
	if f.SuppressionReason != "" {
		f.Disposition = model.DispositionSuppressed
		return f
	}
	if hasGate(f, flagOldDomainDigest) {
		f.Disposition = model.DispositionDigest
		return f
	}

	meetsThresholds := f.Confidence >= e.policy.MinConfidenceAlert &&
		f.Severity.Rank() >= e.policy.MinSeverityAlert.Rank()
	if meetsThresholds && !hasGate(f, gateNotAlertable) {
		if hasGate(f, gateCorroborated) {
			f.Disposition = model.DispositionAlert
			return f
		}
		f.Disposition = model.DispositionInvestigate
		f.BlockedBy = gateUncorroborated
		return f
	}

	if f.Severity.Rank() >= model.SeverityMedium.Rank() ||
		f.Confidence >= e.policy.MinConfidenceAlert-nearThresholdBand {
		f.Disposition = model.DispositionInvestigate
		return f
	}
	f.Disposition = model.DispositionDigest
	return f
}

// policyBlocked reports whether the scope's explicit suppress list names the
// finding's subject or any rule that matched it.
func (e *Escalator) policyBlocked(f model.Finding) bool {
	for _, entry := range e.policy.Suppress {
		if strings.EqualFold(entry, f.Subject) {
			return true
		}
		for _, rule := range f.MatchedRules {
			if strings.EqualFold(entry, rule) {
				return true
			}
		}
	}
	return false
}

func hasGate(f model.Finding, gate string) bool {
	for _, g := range f.PolicyGates {
		if g == gate {
			return true
		}
	}
	return false
}
