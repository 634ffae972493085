package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/osprey-sec/osprey/internal/detect"
	"github.com/osprey-sec/osprey/internal/model"
	"github.com/osprey-sec/osprey/internal/scope"
)

// CollectResult is everything one collection pass produced: raw evidence in
// deterministic order, the detectors that actually ran, and any sources that
// contributed nothing.
type CollectResult struct {
	Raw       []model.RawEvidence
	Detectors []string
	Degraded  []model.DegradedSource
}

// Collector runs offline detectors and network sources for one window.
// Sources run concurrently under the scope's max_concurrent ceiling; a
// source that errors or times out degrades without aborting the run.
type Collector struct {
	registry      *detect.Registry
	sources       []Source
	sourceTimeout time.Duration
	noNetwork     bool
	verbose       bool
	logf          func(format string, args ...interface{})
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSources registers network or fixture adapters.
func WithSources(sources ...Source) CollectorOption {
	return func(c *Collector) { c.sources = append(c.sources, sources...) }
}

// WithSourceTimeout bounds each source's Collect call.
func WithSourceTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) { c.sourceTimeout = d }
}

// WithNoNetwork refuses every non-offline source; each refusal is recorded
// as a degradation so the manifest explains the missing coverage.
func WithNoNetwork(enabled bool) CollectorOption {
	return func(c *Collector) { c.noNetwork = enabled }
}

// WithLogf sets the progress log sink used when verbose.
func WithLogf(verbose bool, logf func(format string, args ...interface{})) CollectorOption {
	return func(c *Collector) {
		c.verbose = verbose
		c.logf = logf
	}
}

// NewCollector builds a collector over the detector registry.
func NewCollector(registry *detect.Registry, opts ...CollectorOption) *Collector {
	c := &Collector{
		registry:      registry,
		sourceTimeout: 30 * time.Second,
		logf:          func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect gathers raw evidence from every scope-allowed detector and source.
// Output order is independent of source completion order: evidence is sorted
// by ref, then source.
func (c *Collector) Collect(ctx context.Context, sc *scope.Scope, window model.RunWindow) (*CollectResult, error) {
	result := &CollectResult{}

	for _, name := range c.registry.Names() {
		if !sc.AllowsDetector(name) {
			continue
		}
		det, _ := c.registry.Lookup(name)
		if !c.detectorSourcesAllowed(sc, det) {
			continue
		}
		raw, err := det.Run(sc, window)
		if err != nil {
			return nil, fmt.Errorf("detector %s: %w", name, err)
		}
		if c.verbose {
			c.logf("detector %s produced %d evidence records\n", name, len(raw))
		}
		result.Raw = append(result.Raw, raw...)
		result.Detectors = append(result.Detectors, name)
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, sc.Sources.MaxConcurrent)
	)
	for _, src := range c.sources {
		if !sc.AllowsSource(src.Kind()) {
			continue
		}
		if c.noNetwork && !src.Offline() {
			result.Degraded = append(result.Degraded, model.DegradedSource{
				Source: src.Kind(),
				Reason: "network disabled",
			})
			continue
		}

		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			srcCtx, cancel := context.WithTimeout(ctx, c.sourceTimeout)
			defer cancel()

			raw, err := src.Collect(srcCtx, sc, window)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Degraded = append(result.Degraded, model.DegradedSource{
					Source: src.Kind(),
					Reason: err.Error(),
				})
				return
			}
			if c.verbose {
				c.logf("source %s collected %d evidence records\n", src.Kind(), len(raw))
			}
			result.Raw = append(result.Raw, raw...)
		}(src)
	}
	wg.Wait()

	sort.Strings(result.Detectors)
	sort.Slice(result.Degraded, func(i, j int) bool {
		return result.Degraded[i].Source < result.Degraded[j].Source
	})
	sort.Slice(result.Raw, func(i, j int) bool {
		if result.Raw[i].Ref != result.Raw[j].Ref {
			return result.Raw[i].Ref < result.Raw[j].Ref
		}
		return result.Raw[i].Source < result.Raw[j].Source
	})
	return result, nil
}

// detectorSourcesAllowed reports whether every source kind a detector reads
// from is in the scope allowlist.
func (c *Collector) detectorSourcesAllowed(sc *scope.Scope, det detect.Detector) bool {
	for _, kind := range det.Sources() {
		if !sc.AllowsSource(kind) {
			return false
		}
	}
	return true
}
