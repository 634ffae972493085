package pipeline

import (
	"sort"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
)

// Rule is a declarative correlation rule: a predicate over a subject group
// plus an effect. Evaluation order is Priority ascending, tie-broken by Name,
// so the rule trace is deterministic. The first matching rule sets the
// severity floor; confidence deltas from all matching rules accumulate.
type Rule struct {
	Priority        int
	Name            string
	Match           func(group []model.Signal) bool
	SeverityFloor   model.Severity
	ConfidenceDelta int
	AlertEligible   bool
}

// BaselineRules returns the built-in rule table in stable evaluation order.
func BaselineRules() []Rule {
	rules := []Rule{
		{
			Priority:        1,
			Name:            "typosquat-cert-landing",
			Match:           matchTyposquatCertLanding,
			SeverityFloor:   model.SeverityHigh,
			ConfidenceDelta: 25,
			AlertEligible:   true,
		},
		{
			Priority:        2,
			Name:            "mention-spike-alone",
			Match:           matchMentionSpikeAlone,
			SeverityFloor:   model.SeverityLow,
			ConfidenceDelta: 0,
			AlertEligible:   false,
		},
		{
			Priority:        3,
			Name:            "impersonation-mention",
			Match:           matchImpersonationMention,
			SeverityFloor:   model.SeverityMedium,
			ConfidenceDelta: 15,
			AlertEligible:   true,
		},
	}
	sortRules(rules)
	return rules
}

func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
}

// matchTyposquatCertLanding fires when a subject has a typosquat candidate, a
// new certificate, and a landing-page indicator in the same group.
func matchTyposquatCertLanding(group []model.Signal) bool {
	return hasType(group, model.SignalTyposquatDomain) &&
		hasType(group, model.SignalNewCertificate) &&
		hasLandingIndicator(group)
}

// matchMentionSpikeAlone fires when mention-spike is the only signal type in
// the group. It exists to pin the severity floor and to mark the group as
// never alert-eligible on its own.
func matchMentionSpikeAlone(group []model.Signal) bool {
	for _, sig := range group {
		if sig.Type != model.SignalMentionSpike {
			return false
		}
	}
	return hasType(group, model.SignalMentionSpike)
}

func matchImpersonationMention(group []model.Signal) bool {
	return hasType(group, model.SignalImpersonationAcct) &&
		hasType(group, model.SignalMentionSpike)
}

func hasType(group []model.Signal, t model.SignalType) bool {
	for _, sig := range group {
		if sig.Type == t {
			return true
		}
	}
	return false
}

func hasLandingIndicator(group []model.Signal) bool {
	for _, sig := range group {
		if sig.Source == model.SourceLanding {
			return true
		}
		for _, ind := range sig.Indicators {
			if strings.HasPrefix(ind, "landing_similarity=") || ind == "landing_page" {
				return true
			}
		}
	}
	return false
}

func distinctTypes(group []model.Signal) int {
	types := make(map[model.SignalType]bool)
	for _, sig := range group {
		types[sig.Type] = true
	}
	return len(types)
}
