package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// baseScore is the detector-policy starting point per signal type. The scorer
// adjusts confidence from here but never raises severity above the base; only
// a correlation rule can do that.
type baseScore struct {
	confidence int
	severity   model.Severity
}

var baseScores = map[model.SignalType]baseScore{
	model.SignalTyposquatDomain:   {60, model.SeverityMedium},
	model.SignalImpersonationAcct: {55, model.SeverityMedium},
	model.SignalNewCertificate:    {50, model.SeverityMedium},
	model.SignalMentionSpike:      {40, model.SeverityLow},
	model.SignalCodeLeak:          {70, model.SeverityMedium},
	model.SignalPasteExposure:     {70, model.SeverityHigh},
	model.SignalThreatFeedMatch:   {75, model.SeverityHigh},
}

const (
	genericTokenCap        = 60
	oldDomainCap           = 50
	defaultDistanceWeight  = 5
	suppressGenericToken   = "generic_token_uncorroborated"
	flagOldDomainDigest    = "prefer_digest:old_domain"
	watchKeywordBoost      = 5
	indicatorCandidate     = "candidate="
	indicatorDomainAgeDays = "domain_age_days="
	indicatorWatchKeyword  = "watch_keyword="
)

// Scorer computes confidence and severity per signal from scope-tuned rules.
type Scorer struct {
	sc *scope.Scope
}

// NewScorer creates a scorer bound to a validated scope.
func NewScorer(sc *scope.Scope) *Scorer {
	return &Scorer{sc: sc}
}

// ScoreAll scores every signal in place order, returning a new slice. The
// generic-token downgrade needs cross-signal context (corroboration by
// another signal type for the same subject), so scoring takes the full set.
func (s *Scorer) ScoreAll(signals []model.Signal) []model.Signal {
	typesBySubject := make(map[string]map[model.SignalType]bool)
	for _, sig := range signals {
		if typesBySubject[sig.Subject] == nil {
			typesBySubject[sig.Subject] = make(map[model.SignalType]bool)
		}
		typesBySubject[sig.Subject][sig.Type] = true
	}

	out := make([]model.Signal, len(signals))
	for i, sig := range signals {
		out[i] = s.score(sig, len(typesBySubject[sig.Subject]) > 1)
	}
	return out
}

func (s *Scorer) score(sig model.Signal, corroborated bool) model.Signal {
	base, ok := baseScores[sig.Type]
	if !ok {
		base = baseScore{30, model.SeverityLow}
	}
	conf := base.confidence
	sev := base.severity
	var trail []string
	trail = append(trail, fmt.Sprintf("base %d/%s for %s", conf, sev, sig.Type))

	if sig.Type == model.SignalTyposquatDomain {
		if delta, detail := s.distanceAdjust(sig); delta != 0 {
			conf += delta
			trail = append(trail, detail)
		}
	}

	if _, ok := indicatorValue(sig.Indicators, indicatorWatchKeyword); ok {
		conf += watchKeywordBoost
		trail = append(trail, fmt.Sprintf("watch keyword match, +%d", watchKeywordBoost))
	}

	if trust := s.sc.TrustFor(sig.Source); trust != 1.0 {
		conf = int(math.Round(float64(conf) * trust))
		trail = append(trail, fmt.Sprintf("source trust x%.2f (%s)", trust, sig.Source))
	}

	if s.genericTokenCandidate(sig) && !corroborated {
		if conf > genericTokenCap {
			conf = genericTokenCap
		}
		if sev.Rank() > model.SeverityMedium.Rank() {
			sev = model.SeverityMedium
		}
		sig.SuppressionReason = suppressGenericToken
		trail = append(trail, "generic token without corroboration, capped")
	}

	if age, ok := domainAgeDays(sig); ok && s.sc.Policy.Typosquat.OldDomainDays > 0 && age > s.sc.Policy.Typosquat.OldDomainDays {
		if conf > oldDomainCap {
			conf = oldDomainCap
		}
		sig.PolicyFlags = append(sig.PolicyFlags, flagOldDomainDigest)
		trail = append(trail, fmt.Sprintf("domain age %dd exceeds old-domain threshold, capped", age))
	}

	sig.Confidence = clampConfidence(conf)
	sig.Severity = sev
	sig.Rationale = strings.Join(trail, "; ")
	sig.RecommendedActions = recommendedActions(sig.Type)
	return sig
}

// distanceAdjust weights typosquat candidates by edit distance from the
// scoped domain: one edit away is the strongest lookalike.
func (s *Scorer) distanceAdjust(sig model.Signal) (int, string) {
	candidate, ok := indicatorValue(sig.Indicators, indicatorCandidate)
	if !ok {
		return 0, ""
	}
	weight := s.sc.Typosquat.DistanceWeight
	if weight <= 0 {
		weight = defaultDistanceWeight
	}
	dist := detect.EditDistance(sig.Subject, candidate)
	switch dist {
	case 1:
		return 2 * weight, fmt.Sprintf("edit distance 1, +%d", 2*weight)
	case 2:
		return weight, fmt.Sprintf("edit distance 2, +%d", weight)
	default:
		return 0, ""
	}
}

// genericTokenCandidate reports whether a typosquat or impersonation
// candidate is built from dictionary-common tokens.
func (s *Scorer) genericTokenCandidate(sig model.Signal) bool {
	if sig.Type != model.SignalTyposquatDomain && sig.Type != model.SignalImpersonationAcct {
		return false
	}
	candidate, ok := indicatorValue(sig.Indicators, indicatorCandidate)
	if !ok {
		return false
	}
	candidate = strings.ToLower(candidate)
	for _, token := range s.sc.Policy.Typosquat.GenericTokens {
		if token != "" && strings.Contains(candidate, token) {
			return true
		}
	}
	return false
}

func domainAgeDays(sig model.Signal) (int, bool) {
	raw, ok := indicatorValue(sig.Indicators, indicatorDomainAgeDays)
	if !ok {
		return 0, false
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return age, true
}

func indicatorValue(indicators []string, prefix string) (string, bool) {
	for _, ind := range indicators {
		if strings.HasPrefix(ind, prefix) {
			return ind[len(prefix):], true
		}
	}
	return "", false
}

func clampConfidence(conf int) int {
	if conf < 0 {
		return 0
	}
	if conf > 100 {
		return 100
	}
	return conf
}

func recommendedActions(t model.SignalType) []string {
	switch t {
	case model.SignalTyposquatDomain:
		return []string{
			"Verify registration and age via WHOIS/RDAP",
			"Review for defensive registration or UDRP action",
		}
	case model.SignalImpersonationAcct:
		return []string{
			"Report the account through the platform's impersonation process",
			"Notify brand protection contacts",
		}
	case model.SignalNewCertificate:
		return []string{
			"Review the certificate transparency entry",
			"Confirm the issuance is not for owned infrastructure",
		}
	case model.SignalMentionSpike:
		return []string{
			"Sample the mentions for coordinated or malicious activity",
		}
	case model.SignalCodeLeak:
		return []string{
			"Request takedown of the leaked repository content",
			"Rotate any credentials present in the leak",
		}
	case model.SignalPasteExposure:
		return []string{
			"Request removal from the paste site",
			"Rotate any credentials present in the paste",
		}
	case model.SignalThreatFeedMatch:
		return []string{
			"Cross-check the feed entry against internal telemetry",
		}
	default:
		return []string{"Review manually"}
	}
}
