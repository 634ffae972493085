// Package detect defines the pluggable detector capability and the registry
// the pipeline resolves detector names through. The pipeline depends only on
// the Detector interface, never on concrete detector types.
package detect

import (
	"sort"

	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// Detector synthesizes raw evidence for a scope. Offline detectors work from
// the scope alone; network-backed detectors declare the source kinds they
// need so --no-network can refuse them up front.
type Detector interface {
	// Name is the registry key validated against scope.allowed_detectors.
	Name() string

	// Produces lists the signal types this detector can emit.
	Produces() []model.SignalType

	// Sources lists the source kinds this detector reads from.
	Sources() []model.SourceKind

	// Run synthesizes raw evidence for the scope within the run window.
	Run(sc *scope.Scope, window model.RunWindow) ([]model.RawEvidence, error)
}

// Registry maps detector names to implementations.
type Registry struct {
	detectors map[string]Detector
}

// NewRegistry returns a registry with the built-in detectors registered.
func NewRegistry() *Registry {
	r := &Registry{detectors: make(map[string]Detector)}
	r.Register(&TyposquatDetector{})
	return r
}

// Register adds a detector. Last registration wins for a given name.
func (r *Registry) Register(d Detector) {
	r.detectors[d.Name()] = d
}

// Lookup returns the detector for a name.
func (r *Registry) Lookup(name string) (Detector, bool) {
	d, ok := r.detectors[name]
	return d, ok
}

// Names returns registered detector names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KnownDetectorNames lists every detector name a scope allowlist may
// reference. Names without a built-in implementation are still valid scope
// entries: their evidence arrives through fixtures or external collectors.
func KnownDetectorNames() []string {
	return []string{
		"typosquat",
		"impersonation",
		"cert-watch",
		"mention-watch",
		"leak-watch",
		"threat-feed",
	}
}

// SignalTypeFor maps a detector name and its source to the signal type the
// normalizer assigns. The leak-watch split follows the source: code hosts
// yield code-leak, paste sites yield paste-exposure.
func SignalTypeFor(detector string, source model.SourceKind) (model.SignalType, bool) {
	switch detector {
	case "typosquat":
		return model.SignalTyposquatDomain, true
	case "impersonation":
		return model.SignalImpersonationAcct, true
	case "cert-watch":
		return model.SignalNewCertificate, true
	case "mention-watch":
		return model.SignalMentionSpike, true
	case "leak-watch":
		if source == model.SourcePaste {
			return model.SignalPasteExposure, true
		}
		return model.SignalCodeLeak, true
	case "threat-feed":
		return model.SignalThreatFeedMatch, true
	default:
		return "", false
	}
}
