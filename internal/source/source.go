// Package source implements the external collection layer: adapters that
// gather raw evidence, per-source rate limiting, and the collector that runs
// adapters concurrently under a hard ceiling. Everything here finishes (or
// times out) before normalization begins; the core pipeline never sees
// partial collection state.
package source

import (
	"context"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// Source is a collection adapter for one source kind.
type Source interface {
	// Kind is the source kind validated against scope.allowed_sources.
	Kind() model.SourceKind

	// Offline reports whether the adapter works without network access.
	Offline() bool

	// Collect gathers raw evidence for the scope within the window. A
	// returned error degrades this source only; it never aborts the run.
	Collect(ctx context.Context, sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error)
}
