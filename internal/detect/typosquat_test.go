package detect

import (
	"sort"
	"strings"
	"testing"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

func TestPermutations_SortedAndDeduplicated(t *testing.T) {
	candidates := Permutations("example.com", "us")
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if !sort.StringsAreSorted(candidates) {
		t.Error("candidates not sorted")
	}
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			t.Errorf("duplicate candidate: %s", c)
		}
		seen[c] = true
		if c == "example.com" {
			t.Error("candidate equals the scoped domain itself")
		}
	}
	if !seen["example-login.com"] {
		t.Error("expected keyword affix candidate example-login.com")
	}
	if !seen["examp1e.com"] {
		t.Error("expected homoglyph candidate examp1e.com")
	}
	if !seen["exmple.com"] {
		t.Error("expected omission candidate exmple.com")
	}
}

func TestPermutations_Deterministic(t *testing.T) {
	a := Permutations("example.com", "us")
	b := Permutations("example.com", "us")
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Error("permutations differ between calls")
	}
}

func TestTyposquatDetector_Run(t *testing.T) {
	sc, err := scope.Parse([]byte(`
domains: ["example.com"]
allowed_sources: [offline]
allowed_detectors: [typosquat]
privacy: {store_raw: true}
`))
	if err != nil {
		t.Fatalf("scope.Parse: %v", err)
	}

	d := &TyposquatDetector{}
	window := model.RunWindow{}
	raws, err := d.Run(sc, window)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(raws) == 0 {
		t.Fatal("expected raw evidence")
	}
	for _, raw := range raws {
		if raw.Detector != "typosquat" {
			t.Errorf("detector = %s", raw.Detector)
		}
		if raw.Source != model.SourceOffline {
			t.Errorf("source = %s", raw.Source)
		}
		if raw.Subject != "example.com" {
			t.Errorf("subject = %s", raw.Subject)
		}
		if len(raw.Indicators) != 1 || !strings.HasPrefix(raw.Indicators[0], "candidate=") {
			t.Errorf("indicators = %v", raw.Indicators)
		}
	}
}

func TestEditDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"example.com", "examp1e.com", 1},
		{"example.com", "example.com", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}
	for _, tc := range cases {
		if got := EditDistance(tc.a, tc.b); got != tc.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSignalTypeFor(t *testing.T) {
	cases := []struct {
		detector string
		source   model.SourceKind
		want     model.SignalType
	}{
		{"typosquat", model.SourceOffline, model.SignalTyposquatDomain},
		{"cert-watch", model.SourceCT, model.SignalNewCertificate},
		{"leak-watch", model.SourceGithub, model.SignalCodeLeak},
		{"leak-watch", model.SourcePaste, model.SignalPasteExposure},
		{"mention-watch", model.SourceSocial, model.SignalMentionSpike},
		{"threat-feed", model.SourceFeeds, model.SignalThreatFeedMatch},
	}
	for _, tc := range cases {
		got, ok := SignalTypeFor(tc.detector, tc.source)
		if !ok || got != tc.want {
			t.Errorf("SignalTypeFor(%s, %s) = %s/%v, want %s", tc.detector, tc.source, got, ok, tc.want)
		}
	}
	if _, ok := SignalTypeFor("unknown", model.SourceOffline); ok {
		t.Error("unknown detector should not map")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("typosquat"); !ok {
		t.Error("typosquat not registered")
	}
	names := r.Names()
	if len(names) == 0 || !sort.StringsAreSorted(names) {
		t.Errorf("Names() = %v", names)
	}
}
