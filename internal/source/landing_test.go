package source

import (
	"testing"

	"github.com/osprey-sec/osprey/internal/scope"
)

func landingScope(t *testing.T) *scope.Scope {
	t.Helper()
	sc, err := scope.Parse([]byte(`
brand_terms: ["Example"]
products: ["ExamplePay"]
domains: ["example.com"]
allowed_sources: ["offline", "landing"]
allowed_detectors: ["typosquat"]
`))
	if err != nil {
		t.Fatalf("parse scope: %v", err)
	}
	return sc
}

func TestLandingIndicatorsBrandTermInTitle(t *testing.T) {
	got := landingIndicators(landingScope(t), "examp1e.com", &ProbeResult{
		StatusCode: 200,
		Title:      "Welcome to Example Support",
	})
	if !hasIndicator(got, "landing_similarity=title") {
		t.Errorf("missing title similarity: %v", got)
	}
}

func TestLandingIndicatorsProductNameInBody(t *testing.T) {
	got := landingIndicators(landingScope(t), "examp1e.com", &ProbeResult{
		StatusCode: 200,
		Title:      "Sign in",
		BodyText:   "Verify your examplepay balance now",
	})
	if hasIndicator(got, "landing_similarity=title") {
		t.Errorf("unexpected title similarity: %v", got)
	}
	if !hasIndicator(got, "landing_similarity=body") {
		t.Errorf("missing body similarity from product name: %v", got)
	}
}

func TestLandingIndicatorsNoMatch(t *testing.T) {
	got := landingIndicators(landingScope(t), "examp1e.com", &ProbeResult{
		StatusCode: 404,
		Title:      "Parked domain",
		BodyText:   "This domain is for sale",
	})
	for _, ind := range got {
		if ind == "landing_similarity=title" || ind == "landing_similarity=body" {
			t.Errorf("unexpected similarity indicator: %v", got)
		}
	}
}

func hasIndicator(indicators []string, want string) bool {
	for _, ind := range indicators {
		if ind == want {
			return true
		}
	}
	return false
}
