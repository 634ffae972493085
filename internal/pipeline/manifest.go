package pipeline

import (
	"sort"

	"github.com/osprey-sec/osprey/internal/identity"
	"github.com/osprey-sec/osprey/internal/model"
)

// ManifestInput is everything the builder aggregates. Pure data in, manifest
// out; no decision logic lives here.
type ManifestInput struct {
	Window          model.RunWindow
	ScopeHash       string
	ConfigHash      string
	Detectors       []string
	DurationMS      int64
	Evidence        []model.Evidence
	DegradedSources []model.DegradedSource
	RawConsidered   int
	RawSuppressed   int
	RawMalformed    int
	SignalsNew      int
	SignalsRepeat   int
	Findings        int
}

// BuildManifest aggregates run metadata into the write-once manifest. Output
// artifact hashes are appended by the writer after the artifacts exist; the
// manifest itself is always the last artifact written.
func BuildManifest(in ManifestInput) (*model.Manifest, error) {
	evidenceHashes := make([]model.ArtifactHash, 0, len(in.Evidence))
	for _, ev := range in.Evidence {
		h, err := identity.HashCanonical(ev)
		if err != nil {
			return nil, &model.HashingError{Err: err}
		}
		evidenceHashes = append(evidenceHashes, model.ArtifactHash{Name: ev.ID, SHA256: h})
	}
	sort.Slice(evidenceHashes, func(i, j int) bool { return evidenceHashes[i].Name < evidenceHashes[j].Name })

	detectors := append([]string(nil), in.Detectors...)
	sort.Strings(detectors)

	return &model.Manifest{
		Version:         model.Version,
		Build:           identity.BuildID(),
		ScopeHash:       in.ScopeHash,
		ConfigHash:      in.ConfigHash,
		Detectors:       detectors,
		WindowStart:     in.Window.Start,
		WindowEnd:       in.Window.End,
		DurationMS:      in.DurationMS,
		EvidenceHashes:  evidenceHashes,
		DegradedSources: in.DegradedSources,
		RawConsidered:   in.RawConsidered,
		RawSuppressed:   in.RawSuppressed,
		RawMalformed:    in.RawMalformed,
		SignalsNew:      in.SignalsNew,
		SignalsRepeat:   in.SignalsRepeat,
		Findings:        in.Findings,
	}, nil
}
