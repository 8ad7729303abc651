package discover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// Tavily API defaults.
const (
	DefaultTavilyEndpoint   = "https://api.tavily.com"
	DefaultTavilyMaxResults = 10
	defaultTavilyTimeout    = 15 * time.Second
)

// TavilyConfig holds the search-provider settings.
type TavilyConfig struct {
	APIKey     string
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
}

// WithDefaults fills in unset fields.
func (c *TavilyConfig) WithDefaults() *TavilyConfig {
	if c.Endpoint == "" {
		c.Endpoint = DefaultTavilyEndpoint
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultTavilyMaxResults
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTavilyTimeout
	}

	return c
}

// Tavily adapts the Tavily HTTP API to the Searcher and TextFetcher
// interfaces.
type Tavily struct {
	cfg    *TavilyConfig
	client *http.Client
	log    logger.Interface
}

// NewTavily creates a Tavily provider.
func NewTavily(cfg *TavilyConfig, log logger.Interface) *Tavily {
	cfg = cfg.WithDefaults()

	return &Tavily{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.WithComponent("tavily"),
	}
}

// Name identifies the provider in seed files and log rows.
func (t *Tavily) Name() string {
	return "tavily"
}

type tavilySearchRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyExtractRequest struct {
	APIKey string   `json:"api_key"`
	URLs   []string `json:"urls"`
}

type tavilyResult struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

// Discover runs a basic search and maps the hits to candidates.
func (t *Tavily) Discover(ctx context.Context, query string) ([]domain.Candidate, error) {
	if t.cfg.APIKey == "" {
		return nil, nil
	}

	resp, err := t.post(ctx, "/search", tavilySearchRequest{
		APIKey:      t.cfg.APIKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  t.cfg.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.Candidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.URL == "" {
			continue
		}

		candidates = append(candidates, domain.Candidate{
			URL:     r.URL,
			Title:   textnorm.NormWS(r.Title),
			Summary: textnorm.Clip(textnorm.NormWS(r.Content), textnorm.DefaultClipLimit),
		})
	}

	t.log.Debug("search complete", "query", query, "candidates", len(candidates))

	return candidates, nil
}

// FetchText returns the raw page text via the extract endpoint, falling
// back to a single-result search with raw content when extraction comes
// back empty.
func (t *Tavily) FetchText(ctx context.Context, pageURL string, maxChars int) (string, error) {
	if t.cfg.APIKey == "" {
		return "", nil
	}

	resp, err := t.post(ctx, "/extract", tavilyExtractRequest{
		APIKey: t.cfg.APIKey,
		URLs:   []string{pageURL},
	})
	if err == nil && len(resp.Results) > 0 && resp.Results[0].RawContent != "" {
		return truncateRunes(resp.Results[0].RawContent, maxChars), nil
	}
	if err != nil {
		t.log.Debug("extract failed, falling back to search", "url", pageURL, "error", err)
	}

	resp, err = t.post(ctx, "/search", tavilySearchRequest{
		APIKey:            t.cfg.APIKey,
		Query:             pageURL,
		SearchDepth:       "basic",
		MaxResults:        1,
		IncludeRawContent: true,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", nil
	}

	return truncateRunes(resp.Results[0].RawContent, maxChars), nil
}

func (t *Tavily) post(ctx context.Context, path string, body any) (*tavilyResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create tavily request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily %s failed: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return nil, fmt.Errorf("tavily %s returned status %d", path, httpResp.StatusCode)
	}

	var resp tavilyResponse
	if decodeErr := json.NewDecoder(httpResp.Body).Decode(&resp); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode tavily response: %w", decodeErr)
	}

	return &resp, nil
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}

	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
