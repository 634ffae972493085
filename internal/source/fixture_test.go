package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

func testScope(t *testing.T) *scope.Scope {
	t.Helper()
	sc, err := scope.Parse([]byte(`
brand_terms: ["Example"]
domains: ["example.com"]
allowed_sources: ["offline", "fixture", "landing"]
allowed_detectors: ["typosquat", "cert-watch"]
`))
	if err != nil {
		t.Fatalf("parse scope: %v", err)
	}
	return sc
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestFixtureSourceCollect(t *testing.T) {
	path := writeFixture(t, `{"ref":"b","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2026-01-10T00:00:00Z"}

{"ref":"a","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2026-01-12T00:00:00Z"}
`)
	window := model.RunWindow{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := NewFixtureSource(path).Collect(context.Background(), testScope(t), window)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 records, got %d", len(raw))
	}
	if raw[0].Ref != "a" || raw[1].Ref != "b" {
		t.Errorf("records not sorted by ref: %q, %q", raw[0].Ref, raw[1].Ref)
	}
	for _, r := range raw {
		if r.Source != model.SourceFixture {
			t.Errorf("record %s: source = %s, want fixture", r.Ref, r.Source)
		}
	}
}

func TestFixtureSourceWindowFilter(t *testing.T) {
	path := writeFixture(t, `{"ref":"early","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2025-12-01T00:00:00Z"}
{"ref":"inside","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2026-01-15T00:00:00Z"}
{"ref":"late","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2026-03-01T00:00:00Z"}
`)
	window := model.RunWindow{
		Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := NewFixtureSource(path).Collect(context.Background(), testScope(t), window)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(raw) != 1 || raw[0].Ref != "inside" {
		t.Fatalf("expected only the in-window record, got %v", raw)
	}
}

func TestFixtureSourceMalformedLine(t *testing.T) {
	path := writeFixture(t, `{"ref":"ok","source":"ct","detector":"cert-watch","subject":"example.com","observed_at":"2026-01-10T00:00:00Z"}
not json
`)
	_, err := NewFixtureSource(path).Collect(context.Background(), testScope(t), model.RunWindow{})
	if err == nil {
		t.Fatal("expected error for malformed line")
	}
	var collErr *model.CollectionError
	if !errors.As(err, &collErr) {
		t.Fatalf("expected CollectionError, got %T", err)
	}
	if collErr.Source != model.SourceFixture {
		t.Errorf("error source = %s, want fixture", collErr.Source)
	}
}

func TestFixtureSourceMissingFile(t *testing.T) {
	_, err := NewFixtureSource(filepath.Join(t.TempDir(), "absent.jsonl")).Collect(context.Background(), testScope(t), model.RunWindow{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
