package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
)

// Policy gate labels recorded on findings for the escalator and the audit
// trail.
const (
	gateCorroborated    = "corroborated"
	gateUncorroborated  = "uncorroborated"
	gateNotAlertable    = "rule_not_alert_eligible"
	ruleNameBaseline    = "baseline"
	ruleNameCorroborate = "corroboration-gate"
)

// Correlator groups signals by subject and evaluates the rule table per
// group. Every group yields exactly one finding; groups no rule matched still
// carry their aggregate score forward so the escalator can disposition them.
type Correlator struct {
	rules []Rule
}

// NewCorrelator creates a correlator over a rule table. The table is copied
// and re-sorted into evaluation order; the caller's slice is not touched.
func NewCorrelator(rules []Rule) *Correlator {
	owned := append([]Rule(nil), rules...)
	sortRules(owned)
	return &Correlator{rules: owned}
}

// Correlate produces findings from the scored signal set, sorted by finding
// id. Suppressed-only groups propagate the suppression reason so the
// escalator can take precedence over every other disposition.
func (c *Correlator) Correlate(signals []model.Signal) []model.Finding {
	groups := make(map[string][]model.Signal)
	for _, sig := range signals {
		groups[sig.Subject] = append(groups[sig.Subject], sig)
	}

	subjects := make([]string, 0, len(groups))
	for subject := range groups {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	findings := make([]model.Finding, 0, len(subjects))
	for _, subject := range subjects {
		findings = append(findings, c.correlateGroup(subject, groups[subject]))
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].ID < findings[j].ID })
	return findings
}

func (c *Correlator) correlateGroup(subject string, group []model.Signal) model.Finding {
	sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

	conf, sev := aggregateScore(group)
	f := model.Finding{
		Subject:    subject,
		SignalIDs:  signalIDs(group),
		Confidence: conf,
		Severity:   sev,
	}

	primaryRule := ruleNameBaseline
	alertEligible := true
	floorSet := false
	for _, rule := range c.rules {
		if !rule.Match(group) {
			continue
		}
		f.MatchedRules = append(f.MatchedRules, rule.Name)
		effect := fmt.Sprintf("confidence %+d", rule.ConfidenceDelta)
		if !floorSet {
			floorSet = true
			primaryRule = rule.Name
			alertEligible = rule.AlertEligible
			if rule.SeverityFloor.Rank() > f.Severity.Rank() {
				f.Severity = rule.SeverityFloor
			}
			effect = fmt.Sprintf("severity floor %s, confidence %+d", rule.SeverityFloor, rule.ConfidenceDelta)
		}
		f.Confidence = clampConfidence(f.Confidence + rule.ConfidenceDelta)
		f.RuleTrace = append(f.RuleTrace, model.RuleTraceEntry{
			Rule:   rule.Name,
			Effect: effect,
			Delta:  rule.ConfidenceDelta,
		})
	}

	corroborated := distinctTypes(group) >= 2
	if corroborated {
		f.PolicyGates = append(f.PolicyGates, gateCorroborated)
	} else {
		f.PolicyGates = append(f.PolicyGates, gateUncorroborated)
	}
	if !alertEligible {
		f.PolicyGates = append(f.PolicyGates, gateNotAlertable)
	}

	// A lone HIGH-eligible signal stays at Medium until a later run
	// corroborates it.
	if f.Severity.Rank() >= model.SeverityHigh.Rank() && !corroborated {
		f.Severity = model.SeverityMedium
		f.RuleTrace = append(f.RuleTrace, model.RuleTraceEntry{
			Rule:   ruleNameCorroborate,
			Effect: "severity downgraded to medium pending corroboration",
			Delta:  0,
		})
	}

	if reason := groupSuppression(group); reason != "" {
		f.SuppressionReason = reason
	}
	for _, flag := range groupPolicyFlags(group) {
		f.PolicyGates = append(f.PolicyGates, flag)
	}

	f.ID = identity.FindingID(primaryRule, f.SignalIDs)
	f.Title = findingTitle(subject, group)
	f.Rationale = findingRationale(group, f.MatchedRules)
	f.LastCorroborated = latestTimestamp(group)
	return f
}

// aggregateScore is the pre-rule baseline for a group: the strongest signal's
// confidence and severity.
func aggregateScore(group []model.Signal) (int, model.Severity) {
	conf := 0
	sev := model.SeverityLow
	for _, sig := range group {
		if sig.Confidence > conf {
			conf = sig.Confidence
		}
		if sig.Severity.Rank() > sev.Rank() {
			sev = sig.Severity
		}
	}
	return conf, sev
}

// groupSuppression propagates a suppression reason only when every member
// signal carries one; a single clean signal keeps the finding live.
func groupSuppression(group []model.Signal) string {
	reason := ""
	for _, sig := range group {
		if sig.SuppressionReason == "" {
			return ""
		}
		reason = sig.SuppressionReason
	}
	return reason
}

func groupPolicyFlags(group []model.Signal) []string {
	seen := make(map[string]bool)
	var out []string
	for _, sig := range group {
		for _, flag := range sig.PolicyFlags {
			if !seen[flag] {
				seen[flag] = true
				out = append(out, flag)
			}
		}
	}
	sort.Strings(out)
	return out
}

func signalIDs(group []model.Signal) []string {
	ids := make([]string, 0, len(group))
	for _, sig := range group {
		ids = append(ids, sig.ID)
	}
	return ids
}

func findingTitle(subject string, group []model.Signal) string {
	types := make([]string, 0, len(group))
	seen := make(map[model.SignalType]bool)
	for _, sig := range group {
		if !seen[sig.Type] {
			seen[sig.Type] = true
			types = append(types, string(sig.Type))
		}
	}
	sort.Strings(types)
	return subject + ": " + strings.Join(types, " + ")
}

func findingRationale(group []model.Signal, matched []string) string {
	parts := []string{fmt.Sprintf("%d signal(s), %d distinct type(s)", len(group), distinctTypes(group))}
	if len(matched) > 0 {
		parts = append(parts, "rules: "+strings.Join(matched, ", "))
	} else {
		parts = append(parts, "no correlation rule matched")
	}
	return strings.Join(parts, "; ")
}

func latestTimestamp(group []model.Signal) (latest time.Time) {
	for _, sig := range group {
		if sig.Timestamp.After(latest) {
			latest = sig.Timestamp
		}
	}
	return latest
}
