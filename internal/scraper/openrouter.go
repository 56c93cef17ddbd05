package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	openRouterName       = "openrouter"
	defaultOpenRouterURL = "https://openrouter.ai/api/v1/models"
	openRouterTimeout    = 15 * time.Second
)

func init() {
	Register(func() Scraper { return NewOpenRouterScraper() })
}

// OpenRouterScraper pulls the OpenRouter model list, which quotes prices in
// USD per token as decimal strings.
type OpenRouterScraper struct {
	url    string
	client *http.Client
}

// NewOpenRouterScraper constructs the OpenRouter scraper.
func NewOpenRouterScraper() *OpenRouterScraper {
	return &OpenRouterScraper{
		url:    defaultOpenRouterURL,
		client: &http.Client{Timeout: openRouterTimeout},
	}
}

// Name implements Scraper.
func (s *OpenRouterScraper) Name() string { return openRouterName }

type openRouterModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
	Architecture  *struct {
		InputModalities []string `json:"input_modalities"`
	} `json:"architecture"`
	Pricing *struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	TopProvider *struct {
		MaxCompletionTokens *int `json:"max_completion_tokens"`
	} `json:"top_provider"`
	SupportedParameters []string `json:"supported_parameters"`
}

type openRouterPayload struct {
	Data []openRouterModel `json:"data"`
}

// Scrape fetches and parses the OpenRouter model list.
func (s *OpenRouterScraper) Scrape(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &ScrapeError{Scraper: s.Name(), Err: fmt.Errorf("build request: %w", err)}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ScrapeError{Scraper: s.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &ScrapeError{Scraper: s.Name(), Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ScrapeError{Scraper: s.Name(), Err: fmt.Errorf("read response: %w", err)}
	}

	var payload openRouterPayload
	if errUnmarshal := json.Unmarshal(body, &payload); errUnmarshal != nil {
		return nil, &ScrapeError{Scraper: s.Name(), Err: fmt.Errorf("decode payload: %w", errUnmarshal)}
	}

	entries := make([]Entry, 0, len(payload.Data))
	for _, model := range payload.Data {
		modelName := strings.TrimSpace(model.Name)
		if modelName == "" {
			modelName = strings.TrimSpace(model.ID)
		}
		if modelName == "" {
			continue
		}

		entry := Entry{
			Provider:      providerFromID(model.ID),
			ModelName:     modelName,
			ContextWindow: model.ContextLength,
		}
		if model.Architecture != nil {
			entry.Modalities = model.Architecture.InputModalities
		}
		if model.Pricing != nil {
			// OpenRouter prices are per token; Entry carries per MTok.
			if perToken, errParse := strconv.ParseFloat(model.Pricing.Prompt, 64); errParse == nil {
				entry.InputCostPerMTok = perToken * tokensPerMTok
			}
			if perToken, errParse := strconv.ParseFloat(model.Pricing.Completion, 64); errParse == nil {
				entry.OutputCostPerMTok = perToken * tokensPerMTok
			}
		}
		if model.TopProvider != nil && model.TopProvider.MaxCompletionTokens != nil && *model.TopProvider.MaxCompletionTokens > 0 {
			maxOut := *model.TopProvider.MaxCompletionTokens
			entry.MaxOutputTokens = &maxOut
		}
		for _, param := range model.SupportedParameters {
			if param == "tools" {
				entry.SupportsTools = true
				break
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// providerFromID derives the provider segment of an OpenRouter model id such
// as "anthropic/claude-3-haiku".
func providerFromID(id string) string {
	id = strings.TrimSpace(id)
	if idx := strings.IndexByte(id, '/'); idx > 0 {
		return id[:idx]
	}
	return id
}
