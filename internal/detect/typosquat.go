package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// TyposquatDetector generates lookalike-domain candidates for every scoped
// domain. It is fully offline: candidates are synthesized, not resolved, so
// it is safe in demo mode and under --no-network.
type TyposquatDetector struct{}

func (d *TyposquatDetector) Name() string { return "typosquat" }

func (d *TyposquatDetector) Produces() []model.SignalType {
	return []model.SignalType{model.SignalTyposquatDomain}
}

func (d *TyposquatDetector) Sources() []model.SourceKind {
	return []model.SourceKind{model.SourceOffline}
}

func (d *TyposquatDetector) Run(sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error) {
	var out []model.RawEvidence
	for _, domain := range sc.Domains {
		for _, candidate := range Permutations(domain, sc.Typosquat.Locale) {
			out = append(out, model.RawEvidence{
				Ref:        fmt.Sprintf("typo:%s->%s", domain, candidate),
				Source:     model.SourceOffline,
				Detector:   d.Name(),
				Subject:    domain,
				ObservedAt: window.Start,
				Text:       "Generated typosquat candidate " + candidate,
				Indicators: []string{"candidate=" + candidate},
			})
		}
	}
	return out, nil
}

// Permutations generates lookalike candidates for a domain: keyword affixes,
// single-character omissions, and locale-tuned homoglyph substitutions.
// Output is sorted and deduplicated so candidate order never depends on
// generation order.
func Permutations(domain, locale string) []string {
	var out []string
	sld, tld := splitDomain(domain)

	for _, kw := range []string{"secure", "login", "support", "billing", "verify", "auth"} {
		out = append(out, fmt.Sprintf("%s-%s.%s", sld, kw, tld))
		out = append(out, fmt.Sprintf("%s-%s.%s", kw, sld, tld))
	}
	out = append(out, sld+"secure."+tld)

	chars := []rune(sld)
	for i := range chars {
		omitted := make([]rune, 0, len(chars)-1)
		omitted = append(omitted, chars[:i]...)
		omitted = append(omitted, chars[i+1:]...)
		if len(omitted) > 1 {
			out = append(out, string(omitted)+"."+tld)
		}
		for _, rep := range homoglyphs(chars[i], locale) {
			substituted := make([]rune, len(chars))
			copy(substituted, chars)
			substituted[i] = rep
			out = append(out, string(substituted)+"."+tld)
		}
	}

	sort.Strings(out)
	out = dedupe(out)
	filtered := out[:0]
	for _, cand := range out {
		if cand != domain {
			filtered = append(filtered, cand)
		}
	}
	return filtered
}

// splitDomain splits "example.com" into ("example", "com") on the last dot.
func splitDomain(domain string) (string, string) {
	if idx := strings.LastIndex(domain, "."); idx > 0 {
		return domain[:idx], domain[idx+1:]
	}
	return domain, "com"
}

func homoglyphs(c rune, locale string) []rune {
	base := map[rune][]rune{
		'l': {'1', 'i'},
		'i': {'1', 'l'},
		'o': {'0'},
		'0': {'o'},
		'e': {'3'},
		'a': {'4'},
	}
	subs := base[c]
	// Cyrillic-adjacent locales see transliteration swaps in the wild.
	if locale == "ru" || locale == "ua" {
		if c == 'y' {
			subs = append(subs, 'u')
		}
		if c == 'c' {
			subs = append(subs, 'k')
		}
	}
	return subs
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var prev string
	for i, v := range sorted {
		if i == 0 || v != prev {
			out = append(out, v)
		}
		prev = v
	}
	return out
}

// EditDistance is the Levenshtein distance between two strings, used for the
// typosquat distance weighting in the scorer.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
