package identity

import (
	"strings"
	"testing"

	"github.com/osprey-sec/osprey/internal/model"
)

func TestSignalID_InvariantToIndicatorOrder(t *testing.T) {
	a := SignalID(model.SignalTyposquatDomain, "example.com", "ev1", []string{"candidate=examp1e.com", "rdap_age_days=12"})
	b := SignalID(model.SignalTyposquatDomain, "example.com", "ev1", []string{"rdap_age_days=12", "candidate=examp1e.com"})

	if a != b {
		t.Errorf("expected identical ids for reordered indicators, got %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "sig_") {
		t.Errorf("expected sig_ prefix, got %s", a)
	}
}

func TestSignalID_SensitiveToInputs(t *testing.T) {
	base := SignalID(model.SignalTyposquatDomain, "example.com", "ev1", []string{"candidate=examp1e.com"})

	cases := []struct {
		name string
		id   string
	}{
		{"different type", SignalID(model.SignalNewCertificate, "example.com", "ev1", []string{"candidate=examp1e.com"})},
		{"different subject", SignalID(model.SignalTyposquatDomain, "example.org", "ev1", []string{"candidate=examp1e.com"})},
		{"different evidence ref", SignalID(model.SignalTyposquatDomain, "example.com", "ev2", []string{"candidate=examp1e.com"})},
		{"different indicators", SignalID(model.SignalTyposquatDomain, "example.com", "ev1", []string{"candidate=exampie.com"})},
	}
	for _, tc := range cases {
		if tc.id == base {
			t.Errorf("%s: expected a distinct id", tc.name)
		}
	}
}

func TestSignalID_DoesNotMutateInput(t *testing.T) {
	indicators := []string{"b", "a"}
	SignalID(model.SignalMentionSpike, "example.com", "ev1", indicators)
	if indicators[0] != "b" || indicators[1] != "a" {
		t.Errorf("input indicators mutated: %v", indicators)
	}
}

func TestDedupeKey_ExcludesEvidenceRef(t *testing.T) {
	a := DedupeKey(model.SignalTyposquatDomain, "example.com", []string{"candidate=examp1e.com"})
	b := DedupeKey(model.SignalTyposquatDomain, "example.com", []string{"candidate=examp1e.com"})
	if a != b {
		t.Errorf("dedupe keys differ for identical observation: %s vs %s", a, b)
	}

	idA := SignalID(model.SignalTyposquatDomain, "example.com", "ev1", []string{"candidate=examp1e.com"})
	idB := SignalID(model.SignalTyposquatDomain, "example.com", "ev2", []string{"candidate=examp1e.com"})
	if idA == idB {
		t.Error("signal ids should differ across evidence refs even when dedupe keys match")
	}
}

func TestFindingID_Deterministic(t *testing.T) {
	a := FindingID("typosquat_newcert_landing", []string{"sig_b", "sig_a"})
	b := FindingID("typosquat_newcert_landing", []string{"sig_a", "sig_b"})
	if a != b {
		t.Errorf("finding id should be invariant to signal id order: %s vs %s", a, b)
	}
}

func TestStableJSON_KeyOrderIndependent(t *testing.T) {
	a, err := StableJSON(map[string]interface{}{"b": 1.0, "a": []interface{}{"x", "y"}})
	if err != nil {
		t.Fatalf("StableJSON: %v", err)
	}
	b, err := StableJSON(map[string]interface{}{"a": []interface{}{"x", "y"}, "b": 1.0})
	if err != nil {
		t.Fatalf("StableJSON: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("canonical encodings differ:\n%s\n%s", a, b)
	}
}

func TestHashCanonical_StructsAndMapsAgree(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Terms []string `json:"terms"`
	}
	h1, err := HashCanonical(payload{Name: "acme", Terms: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	h2, err := HashCanonical(map[string]interface{}{"terms": []interface{}{"a", "b"}, "name": "acme"})
	if err != nil {
		t.Fatalf("HashCanonical: %v", err)
	}
	if h1 != h2 {
		t.Errorf("struct and equivalent map hash differently: %s vs %s", h1, h2)
	}
}
