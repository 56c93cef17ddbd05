package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestModelsDevScraper_FetchesAndParses(t *testing.T) {
	payload := []byte(`{
		"provider-x": {
			"name": "Provider X",
			"models": {
				"model-a": {
					"name": "Model A",
					"cost": {"input": 0.25, "output": 1.25},
					"limit": {"context": 200000, "output": 4096},
					"modalities": {"input": ["text", "image"]},
					"tool_call": true
				}
			}
		}
	}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	s := &ModelsDevScraper{url: server.URL, client: server.Client()}
	entries, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Provider != "Provider X" || entry.ModelName != "Model A" {
		t.Fatalf("unexpected identity: %q / %q", entry.Provider, entry.ModelName)
	}
	if entry.InputCostPerMTok != 0.25 || entry.OutputCostPerMTok != 1.25 {
		t.Fatalf("unexpected prices: %v / %v", entry.InputCostPerMTok, entry.OutputCostPerMTok)
	}
	if entry.ContextWindow != 200000 {
		t.Fatalf("unexpected context window: %d", entry.ContextWindow)
	}
	if entry.MaxOutputTokens == nil || *entry.MaxOutputTokens != 4096 {
		t.Fatalf("unexpected max output tokens: %v", entry.MaxOutputTokens)
	}
	if !entry.SupportsTools {
		t.Fatalf("expected tool support")
	}
	if len(entry.Modalities) != 2 || entry.Modalities[1] != "image" {
		t.Fatalf("unexpected modalities: %v", entry.Modalities)
	}
}

func TestModelsDevScraper_HTTPErrorIsScrapeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := &ModelsDevScraper{url: server.URL, client: server.Client()}
	_, err := s.Scrape(context.Background())

	var scrapeErr *ScrapeError
	if !errors.As(err, &scrapeErr) {
		t.Fatalf("expected ScrapeError, got %v", err)
	}
	if scrapeErr.Scraper != modelsDevName {
		t.Fatalf("unexpected scraper name: %q", scrapeErr.Scraper)
	}
}

func TestOpenRouterScraper_ParsesPerTokenPricing(t *testing.T) {
	payload := []byte(`{
		"data": [
			{
				"id": "anthropic/claude-3-haiku",
				"name": "Claude 3 Haiku",
				"context_length": 200000,
				"architecture": {"input_modalities": ["text"]},
				"pricing": {"prompt": "0.00000025", "completion": "0.00000125"},
				"top_provider": {"max_completion_tokens": 4096},
				"supported_parameters": ["temperature", "tools"]
			}
		]
	}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	s := &OpenRouterScraper{url: server.URL, client: server.Client()}
	entries, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Provider != "anthropic" {
		t.Fatalf("unexpected provider: %q", entry.Provider)
	}
	if diff := entry.InputCostPerMTok - 0.25; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("expected per-MTok conversion to 0.25, got %v", entry.InputCostPerMTok)
	}
	if !entry.SupportsTools {
		t.Fatalf("expected tool support from supported_parameters")
	}
}
