package discover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
	"github.com/hojomatch/hojocrawl/internal/textnorm"
)

// Deep-research defaults.
const (
	DefaultResearchModel    = "o4-mini-deep-research-2025-06-26"
	DefaultResearchMaxItems = 40
	defaultResearchTimeout  = 40 * time.Second
)

// ChatClient is the slice of the OpenAI client the provider needs. Tests
// substitute a canned implementation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ResearchConfig holds the deep-research provider settings.
type ResearchConfig struct {
	APIKey         string
	Model          string
	AllowedDomains []string
	MaxItems       int
	Timeout        time.Duration
}

// WithDefaults fills in unset fields.
func (c *ResearchConfig) WithDefaults() *ResearchConfig {
	if c.Model == "" {
		c.Model = DefaultResearchModel
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultResearchMaxItems
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultResearchTimeout
	}

	return c
}

// Research asks a deep-research model to enumerate primary-source
// subsidy pages within an allow-list of domains, and to extract readable
// main text from individual URLs.
type Research struct {
	cfg    *ResearchConfig
	client ChatClient
	log    logger.Interface
}

// NewResearch creates a deep-research provider backed by the OpenAI API.
func NewResearch(cfg *ResearchConfig, log logger.Interface) *Research {
	cfg = cfg.WithDefaults()

	var client ChatClient
	if cfg.APIKey != "" {
		client = openai.NewClient(cfg.APIKey)
	}

	return &Research{cfg: cfg, client: client, log: log.WithComponent("deep-research")}
}

// NewResearchWithClient creates a provider with a caller-supplied chat
// client.
func NewResearchWithClient(cfg *ResearchConfig, client ChatClient, log logger.Interface) *Research {
	return &Research{cfg: cfg.WithDefaults(), client: client, log: log.WithComponent("deep-research")}
}

// Name identifies the provider in seed files and log rows.
func (r *Research) Name() string {
	return "deep-research"
}

const discoverSystemPrompt = "You are a research assistant that ONLY returns valid JSON. " +
	"No prose, no markdown. Output MUST be a JSON object with key 'items' that is an array."

// researchItem is one entry of the model's items array.
type researchItem struct {
	URL         string `json:"url"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	SubsidyRate string `json:"subsidy_rate"`
	Rate        string `json:"rate"`
	MaxAmount   string `json:"max_amount"`
	Cap         string `json:"cap"`
	FiscalYear  string `json:"fiscal_year"`
	CallNo      string `json:"call_no"`
}

// Discover asks the model for primary-source subsidy pages matching the
// query. When the model returns malformed JSON, URL-shaped substrings in
// the reply are salvaged as bare candidates.
func (r *Research) Discover(ctx context.Context, query string) ([]domain.Candidate, error) {
	if r.client == nil || len(r.cfg.AllowedDomains) == 0 {
		return nil, nil
	}

	user := "allowed_domains 内だけで、最新の『補助金の公募・要領・申請』の一次情報ページを探し、" +
		"各ページの {url,title,summary,subsidy_rate,max_amount,fiscal_year,call_no} を抽出して返してください。" +
		fmt.Sprintf("最大 %d 件。重複URLは除外。allowed_domains の外は含めない。\n", r.cfg.MaxItems) +
		fmt.Sprintf("allowed_domains: %s\n", strings.Join(r.cfg.AllowedDomains, ", ")) +
		"クエリ: " + query

	content, err := r.complete(ctx, discoverSystemPrompt, user, 0.2)
	if err != nil {
		return nil, fmt.Errorf("deep-research discover failed: %w", err)
	}

	var parsed struct {
		Items []researchItem `json:"items"`
	}
	if jsonErr := json.Unmarshal([]byte(content), &parsed); jsonErr != nil {
		r.log.Warn("malformed items json, salvaging links", "error", jsonErr)
		return r.salvageLinks(content), nil
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		u := textnorm.NormWS(firstNonEmpty(item.URL, item.Source))
		if u == "" || !URLAllowed(u, r.cfg.AllowedDomains) {
			continue
		}

		candidates = append(candidates, domain.Candidate{
			URL:        u,
			Title:      textnorm.NormWS(item.Title),
			Summary:    textnorm.Clip(textnorm.NormWS(item.Summary), textnorm.DefaultClipLimit),
			Rate:       textnorm.NormWS(firstNonEmpty(item.SubsidyRate, item.Rate)),
			Cap:        textnorm.NormWS(firstNonEmpty(item.MaxAmount, item.Cap)),
			FiscalYear: textnorm.NormWS(item.FiscalYear),
			CallNo:     textnorm.NormWS(item.CallNo),
		})
		if len(candidates) >= r.cfg.MaxItems {
			break
		}
	}

	return candidates, nil
}

const fetchTextSystemPrompt = "You extract readable main text content from a given URL. " +
	`Return ONLY JSON object: {"text": "..."}. No prose, no markdown.`

// FetchText asks the model to read the URL and return its main text.
// URLs outside the allow-list yield no text.
func (r *Research) FetchText(ctx context.Context, pageURL string, maxChars int) (string, error) {
	if r.client == nil || !URLAllowed(pageURL, r.cfg.AllowedDomains) {
		return "", nil
	}

	user := fmt.Sprintf("URL: %s\n", pageURL) +
		fmt.Sprintf("Allowed domains: %s\n", strings.Join(r.cfg.AllowedDomains, ", ")) +
		"Fetch the page and return its readable main text in Japanese if possible. " +
		fmt.Sprintf("Max characters: %d. Remove navigation, footer, menu, scripts.", maxChars)

	content, err := r.complete(ctx, fetchTextSystemPrompt, user, 0)
	if err != nil {
		return "", fmt.Errorf("deep-research fetch-text failed: %w", err)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if jsonErr := json.Unmarshal([]byte(content), &parsed); jsonErr != nil {
		return "", fmt.Errorf("failed to parse fetch-text response: %w", jsonErr)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", nil
	}

	return truncateRunes(parsed.Text, maxChars), nil
}

func (r *Research) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// salvageLinks pulls allow-listed URLs out of a non-JSON reply.
func (r *Research) salvageLinks(content string) []domain.Candidate {
	var out []domain.Candidate
	for _, u := range Dedupe(urlRE.FindAllString(content, -1)) {
		if !URLAllowed(u, r.cfg.AllowedDomains) {
			continue
		}

		out = append(out, domain.Candidate{URL: u, Title: domain.UntitledTitle})
		if len(out) >= r.cfg.MaxItems {
			break
		}
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
