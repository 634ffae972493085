package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/osprey-sec/osprey/internal/cache"
)

// ProbeResult is what a landing-page fetch yields for indicator derivation.
type ProbeResult struct {
	Resolved   bool
	StatusCode int
	FinalURL   string
	Title      string
	BodyText   string
}

// Prober fetches candidate landing pages. Responses are cached so repeated
// candidates across scoped domains do not refetch; the default cache lives in
// memory for the run, and WithCache swaps in a persistent one.
type Prober struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	cache      cache.Cache
}

// NewProber creates a prober with the given HTTP bounds.
func NewProber(timeout time.Duration, userAgent string, maxBytes int64) *Prober {
	return &Prober{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
		cache:     cache.NewMemory(10*time.Minute, 15*time.Minute),
	}
}

// WithCache replaces the probe cache and returns the prober for chaining.
func (p *Prober) WithCache(c cache.Cache) *Prober {
	p.cache = c
	return p
}

// Probe fetches http://<candidate>/ and extracts the page title and text.
func (p *Prober) Probe(ctx context.Context, candidate string) (*ProbeResult, error) {
	return p.probeURL(ctx, "http://"+candidate+"/")
}

func (p *Prober) probeURL(ctx context.Context, probeURL string) (*ProbeResult, error) {
	cacheKey := cache.Key(probeURL)
	if cached, found := p.cache.Get(cacheKey); found {
		var result ProbeResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		// Unresolvable candidates are a negative result, not an error.
		result := ProbeResult{Resolved: false}
		p.cacheResult(cacheKey, result)
		return &result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result := ProbeResult{
		Resolved:   true,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}
	if doc, err := html.Parse(strings.NewReader(string(body))); err == nil {
		result.Title = pageTitle(doc)
		result.BodyText = collectText(doc)
	}

	p.cacheResult(cacheKey, result)
	return &result, nil
}

func (p *Prober) cacheResult(key string, result ProbeResult) {
	if data, err := json.Marshal(result); err == nil {
		_ = p.cache.Set(key, data, 0)
	}
}

func pageTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

func collectText(doc *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(buf.String())
}
