// Package llm provides the optional analyst narrative for reports. The
// summary is presentation only: it never affects scoring, identity, or
// dispositions, and it cites evidence URLs from a strict allowlist so the
// model cannot introduce references the run did not produce.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/osprey-sec/osprey/internal/model"
)

// Provider is an LLM backend capable of summarizing a run.
type Provider interface {
	Name() string

	// Summarize generates an analyst narrative under strict evidence mode.
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks the provider is configured and reachable.
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest is the input for a narrative.
type SummarizeRequest struct {
	Findings []model.Finding
	Manifest *model.Manifest

	// EvidenceURLs is the strict allowlist of URLs the model may cite. A
	// response citing anything else is rejected, not repaired.
	EvidenceURLs []string

	Prompt    string
	Model     string
	MaxTokens int
}

// SummarizeResponse is the narrative plus the citations found in it.
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds provider configuration. BaseURL covers OpenAI-compatible
// endpoints, including local inference servers.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	TimeoutS  int
	MaxTokens int
}

// ConfigFromModel maps the run configuration into the provider config.
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		TimeoutS:  c.TimeoutS,
		MaxTokens: c.MaxTokens,
	}
}

// NewProvider constructs the configured provider. One implementation covers
// every OpenAI-compatible endpoint via BaseURL.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "openai":
		return NewOpenAIProvider(config)
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}

// BuildPrompt constructs the default summarization prompt. The narrative
// describes findings and dispositions; it must never invent sources.
func BuildPrompt(findings []model.Finding, manifest *model.Manifest, evidenceURLs []string) string {
	var b strings.Builder
	b.WriteString(`You are summarizing a brand-monitoring run for a security analyst.

RULES:
1. Cite ONLY URLs from this allowed list:
`)
	if len(evidenceURLs) == 0 {
		b.WriteString("(no evidence URLs this run)\n")
	}
	for i, u := range evidenceURLs {
		if i >= 20 {
			fmt.Fprintf(&b, "... and %d more URLs\n", len(evidenceURLs)-20)
			break
		}
		fmt.Fprintf(&b, "- %s\n", u)
	}
	b.WriteString(`2. Do not infer, speculate, or reference external sources.
3. Describe what was observed and its disposition; never assert attacker intent as fact.
4. Findings below are the complete set; do not invent others.

`)
	if manifest != nil {
		fmt.Fprintf(&b, "Run: %d signals new, %d repeats, %d findings, %d raw records considered.\n\n",
			manifest.SignalsNew, manifest.SignalsRepeat, manifest.Findings, manifest.RawConsidered)
	}
	for i, f := range findings {
		if i >= 10 {
			fmt.Fprintf(&b, "... and %d more findings\n", len(findings)-10)
			break
		}
		fmt.Fprintf(&b, "- [%s] %s (confidence %d, severity %s)\n",
			strings.ToUpper(string(f.Disposition)), f.Title, f.Confidence, f.Severity)
	}
	b.WriteString("\nProvide a 3-5 sentence narrative ordered by urgency.")
	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s\)\]\}>,"']+`)

// extractURLs pulls every URL out of the generated text for allowlist
// verification.
func extractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		m = strings.TrimRight(m, ".")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
