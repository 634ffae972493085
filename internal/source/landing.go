package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// LandingSource probes lookalike-domain candidates over HTTP and reports the
// ones that resolve to a live page. Probes are robots-gated and rate-limited;
// a candidate whose robots.txt denies the root path is skipped entirely.
type LandingSource struct {
	prober  *Prober
	robots  *RobotsChecker
	limiter *Limiter
}

// NewLandingSource wires a landing prober with its robots gate and limiter.
func NewLandingSource(prober *Prober, robots *RobotsChecker, limiter *Limiter) *LandingSource {
	return &LandingSource{prober: prober, robots: robots, limiter: limiter}
}

// Kind implements Source.
func (l *LandingSource) Kind() model.SourceKind { return model.SourceLanding }

// Offline implements Source.
func (l *LandingSource) Offline() bool { return false }

// Collect probes every typosquat candidate for every scoped domain. Only
// candidates that resolve produce evidence; a dead candidate is not an
// observation.
func (l *LandingSource) Collect(ctx context.Context, sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error) {
	var out []model.RawEvidence
	for _, domain := range sc.Domains {
		for _, candidate := range detect.Permutations(domain, sc.Typosquat.Locale) {
			if err := ctx.Err(); err != nil {
				return out, &model.CollectionError{Source: model.SourceLanding, Err: err}
			}
			probeURL := "http://" + candidate + "/"
			if !l.robots.Allowed(ctx, probeURL) {
				continue
			}
			if err := l.limiter.Wait(ctx, model.SourceLanding); err != nil {
				return out, &model.CollectionError{Source: model.SourceLanding, Err: err}
			}
			result, err := l.prober.Probe(ctx, candidate)
			if err != nil {
				return out, &model.CollectionError{Source: model.SourceLanding, Err: err}
			}
			if !result.Resolved {
				continue
			}
			out = append(out, model.RawEvidence{
				Ref:        fmt.Sprintf("landing:%s->%s", domain, candidate),
				Source:     model.SourceLanding,
				Detector:   "typosquat",
				Subject:    domain,
				ObservedAt: window.Start,
				Text:       result.Title,
				Indicators: landingIndicators(sc, candidate, result),
				URL:        probeURL,
				Note:       fmt.Sprintf("HTTP %d", result.StatusCode),
			})
		}
	}
	return out, nil
}

// landingIndicators derives ordered indicators from a probe result. A brand
// term in the page title marks the candidate as imitating the brand, which
// feeds the landing-similarity correlation rule.
func landingIndicators(sc *scope.Scope, candidate string, result *ProbeResult) []string {
	indicators := []string{
		"candidate=" + candidate,
		"resolved=true",
		fmt.Sprintf("status=%d", result.StatusCode),
	}
	terms := append(append([]string(nil), sc.BrandTerms...), sc.Products...)
	if containsAnyTerm(result.Title, terms) {
		indicators = append(indicators, "landing_similarity=title")
	}
	if containsAnyTerm(result.BodyText, terms) {
		indicators = append(indicators, "landing_similarity=body")
	}
	return indicators
}

// containsAnyTerm matches brand terms and product names case-insensitively.
func containsAnyTerm(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
