package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// FixtureSource replays raw evidence captured in a JSONL file, one
// model.RawEvidence object per line. Blank lines are skipped; a malformed
// line fails the whole load so a corrupted capture never half-replays.
type FixtureSource struct {
	path string
}

// NewFixtureSource creates a fixture source backed by the given JSONL file.
func NewFixtureSource(path string) *FixtureSource {
	return &FixtureSource{path: path}
}

// Kind implements Source.
func (f *FixtureSource) Kind() model.SourceKind { return model.SourceFixture }

// Offline implements Source; fixtures never touch the network.
func (f *FixtureSource) Offline() bool { return true }

// Collect reads every evidence record in the fixture file that falls inside
// the run window, stamped with the fixture source kind.
func (f *FixtureSource) Collect(ctx context.Context, sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, &model.CollectionError{Source: model.SourceFixture, Err: fmt.Errorf("open fixture: %w", err)}
	}
	defer func() { _ = file.Close() }()

	var out []model.RawEvidence
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw model.RawEvidence
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, &model.CollectionError{
				Source: model.SourceFixture,
				Err:    fmt.Errorf("line %d: %w", lineNo, err),
			}
		}
		raw.Source = model.SourceFixture
		if !window.Start.IsZero() && raw.ObservedAt.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && raw.ObservedAt.After(window.End) {
			continue
		}
		out = append(out, raw)
	}
	if err := scanner.Err(); err != nil {
		return nil, &model.CollectionError{Source: model.SourceFixture, Err: fmt.Errorf("read fixture: %w", err)}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}
