package source

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

type stubSource struct {
	kind    model.SourceKind
	offline bool
	raw     []model.RawEvidence
	err     error
	delay   time.Duration
}

func (s *stubSource) Kind() model.SourceKind { return s.kind }
func (s *stubSource) Offline() bool          { return s.offline }

func (s *stubSource) Collect(ctx context.Context, sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.raw, s.err
}

func TestCollectorRunsAllowedDetectors(t *testing.T) {
	sc := testScope(t)
	c := NewCollector(detect.NewRegistry())

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Detectors) != 1 || result.Detectors[0] != "typosquat" {
		t.Fatalf("detectors = %v, want [typosquat]", result.Detectors)
	}
	if len(result.Raw) == 0 {
		t.Error("typosquat detector produced no evidence")
	}
}

func TestCollectorSkipsDisallowedDetector(t *testing.T) {
	sc, err := scope.Parse([]byte(`
domains: ["example.com"]
allowed_sources: ["offline"]
allowed_detectors: ["cert-watch"]
`))
	if err != nil {
		t.Fatalf("parse scope: %v", err)
	}
	c := NewCollector(detect.NewRegistry())

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Detectors) != 0 {
		t.Errorf("detectors = %v, want none", result.Detectors)
	}
}

func TestCollectorDegradesFailingSource(t *testing.T) {
	sc := testScope(t)
	failing := &stubSource{kind: model.SourceLanding, err: errors.New("connect refused")}
	c := NewCollector(detect.NewRegistry(), WithSources(failing))

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Degraded) != 1 {
		t.Fatalf("expected 1 degraded source, got %d", len(result.Degraded))
	}
	if result.Degraded[0].Source != model.SourceLanding {
		t.Errorf("degraded source = %s, want landing", result.Degraded[0].Source)
	}
}

func TestCollectorNoNetworkRefusesOnlineSources(t *testing.T) {
	sc := testScope(t)
	online := &stubSource{kind: model.SourceLanding, raw: []model.RawEvidence{{Ref: "landing:x"}}}
	fixture := &stubSource{kind: model.SourceFixture, offline: true, raw: []model.RawEvidence{{Ref: "fix:a", Source: model.SourceFixture}}}
	c := NewCollector(detect.NewRegistry(), WithSources(online, fixture), WithNoNetwork(true))

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Degraded) != 1 || result.Degraded[0].Reason != "network disabled" {
		t.Fatalf("degraded = %v, want single network-disabled entry", result.Degraded)
	}
	for _, r := range result.Raw {
		if r.Ref == "landing:x" {
			t.Error("online source evidence collected under no-network")
		}
	}
	foundFixture := false
	for _, r := range result.Raw {
		if r.Ref == "fix:a" {
			foundFixture = true
		}
	}
	if !foundFixture {
		t.Error("offline fixture source refused under no-network")
	}
}

func TestCollectorSourceTimeout(t *testing.T) {
	sc := testScope(t)
	slow := &stubSource{kind: model.SourceLanding, delay: time.Second}
	c := NewCollector(detect.NewRegistry(), WithSources(slow), WithSourceTimeout(10*time.Millisecond))

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(result.Degraded) != 1 {
		t.Fatalf("expected timed-out source to degrade, got %v", result.Degraded)
	}
}

func TestCollectorOutputOrderDeterministic(t *testing.T) {
	sc := testScope(t)
	a := &stubSource{kind: model.SourceFixture, offline: true, delay: 20 * time.Millisecond, raw: []model.RawEvidence{{Ref: "z", Source: model.SourceFixture}}}
	b := &stubSource{kind: model.SourceLanding, raw: []model.RawEvidence{{Ref: "a", Source: model.SourceLanding}}}
	c := NewCollector(detect.NewRegistry(), WithSources(a, b))

	result, err := c.Collect(context.Background(), sc, model.RunWindow{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !sort.SliceIsSorted(result.Raw, func(i, j int) bool { return result.Raw[i].Ref < result.Raw[j].Ref }) {
		t.Error("raw evidence not sorted by ref")
	}
}
