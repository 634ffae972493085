package llm

import (
	"context"
	"fmt"

	"github.com/osprey-sec/osprey/internal/model"
)

// Summarizer wraps a provider and assembles the strict evidence allowlist
// from the run's own evidence records.
type Summarizer struct {
	provider Provider
}

// NewSummarizer constructs a summarizer from configuration. An empty provider
// name is an error; callers decide whether that disables the feature.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider}, nil
}

// Summarize produces the analyst narrative for a completed run.
func (s *Summarizer) Summarize(ctx context.Context, findings []model.Finding, evidence []model.Evidence, manifest *model.Manifest) (*SummarizeResponse, error) {
	var urls []string
	for _, ev := range evidence {
		if ev.URL != "" {
			urls = append(urls, ev.URL)
		}
	}
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Findings:     findings,
		Manifest:     manifest,
		EvidenceURLs: urls,
	})
	if err != nil {
		return nil, fmt.Errorf("summarize (%s): %w", s.provider.Name(), err)
	}
	return resp, nil
}
