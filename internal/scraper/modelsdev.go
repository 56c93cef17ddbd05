package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	modelsDevName       = "modelsdev"
	defaultModelsDevURL = "https://models.dev/api.json"
	modelsDevTimeout    = 15 * time.Second
)

func init() {
	Register(func() Scraper { return NewModelsDevScraper() })
}

// ModelsDevScraper pulls the aggregated models.dev pricing catalog.
type ModelsDevScraper struct {
	url    string
	client *http.Client
}

// NewModelsDevScraper constructs the models.dev scraper.
func NewModelsDevScraper() *ModelsDevScraper {
	return &ModelsDevScraper{
		url:    defaultModelsDevURL,
		client: &http.Client{Timeout: modelsDevTimeout},
	}
}

// Name implements Scraper.
func (s *ModelsDevScraper) Name() string { return modelsDevName }

// Scrape fetches and parses the models.dev payload.
func (s *ModelsDevScraper) Scrape(ctx context.Context) ([]Entry, error) {
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

	entries, err := parseModelsDevPayload(body)
	if err != nil {
		return nil, &ScrapeError{Scraper: s.Name(), Err: err}
	}
	return entries, nil
}

type modelsDevProvider struct {
	Name   string                     `json:"name"`
	Models map[string]json.RawMessage `json:"models"`
}

type modelsDevModel struct {
	Name string `json:"name"`
	Cost *struct {
		Input  *float64 `json:"input"`
		Output *float64 `json:"output"`
	} `json:"cost"`
	Limit *struct {
		Context *int `json:"context"`
		Output  *int `json:"output"`
	} `json:"limit"`
	Modalities *struct {
		Input []string `json:"input"`
	} `json:"modalities"`
	ToolCall bool `json:"tool_call"`
}

// parseModelsDevPayload converts the models.dev payload into scrape entries,
// walking providers and models in sorted order for deterministic output.
func parseModelsDevPayload(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("parse models.dev payload: empty payload")
	}

	var providers map[string]json.RawMessage
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("parse models.dev payload: decode providers: %w", err)
	}

	providerIDs := make([]string, 0, len(providers))
	for providerID := range providers {
		providerIDs = append(providerIDs, providerID)
	}
	sort.Strings(providerIDs)

	var entries []Entry
	for _, providerID := range providerIDs {
		providerRaw := providers[providerID]
		if len(providerRaw) == 0 {
			continue
		}

		var provider modelsDevProvider
		if err := json.Unmarshal(providerRaw, &provider); err != nil {
			return nil, fmt.Errorf("parse models.dev payload: decode provider %s: %w", providerID, err)
		}
		if len(provider.Models) == 0 {
			continue
		}

		providerName := strings.TrimSpace(provider.Name)
		if providerName == "" {
			providerName = strings.TrimSpace(providerID)
		}
		if providerName == "" {
			continue
		}

		modelIDs := make([]string, 0, len(provider.Models))
		for modelID := range provider.Models {
			modelIDs = append(modelIDs, modelID)
		}
		sort.Strings(modelIDs)

		for _, modelID := range modelIDs {
			modelRaw := provider.Models[modelID]
			if len(modelRaw) == 0 {
				continue
			}

			var model modelsDevModel
			if err := json.Unmarshal(modelRaw, &model); err != nil {
				return nil, fmt.Errorf("parse models.dev payload: decode model %s: %w", modelID, err)
			}

			modelName := strings.TrimSpace(model.Name)
			if modelName == "" {
				modelName = strings.TrimSpace(modelID)
			}
			if modelName == "" {
				continue
			}

			entry := Entry{
				Provider:      providerName,
				ModelName:     modelName,
				SupportsTools: model.ToolCall,
			}
			if model.Cost != nil {
				if model.Cost.Input != nil {
					entry.InputCostPerMTok = *model.Cost.Input
				}
				if model.Cost.Output != nil {
					entry.OutputCostPerMTok = *model.Cost.Output
				}
			}
			if model.Limit != nil {
				if model.Limit.Context != nil {
					entry.ContextWindow = *model.Limit.Context
				}
				if model.Limit.Output != nil && *model.Limit.Output > 0 {
					maxOut := *model.Limit.Output
					entry.MaxOutputTokens = &maxOut
				}
			}
			if model.Modalities != nil {
				entry.Modalities = model.Modalities.Input
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
