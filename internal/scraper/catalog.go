package scraper

import (
	"context"

	"github.com/tokenscout/tokenscout/internal/models"
)

const catalogName = "catalog"

func init() {
	Register(func() Scraper { return CatalogScraper{} })
}

// CatalogScraper reports a small built-in catalog of well-known models so a
// fresh deployment has data before any network scraper succeeds.
type CatalogScraper struct{}

// Name implements Scraper.
func (CatalogScraper) Name() string { return catalogName }

// Scrape returns the static catalog.
func (CatalogScraper) Scrape(_ context.Context) ([]Entry, error) {
	haikuOut := 4096
	sonnetOut := 8192
	miniOut := 16384
	speed := 85.0

	return []Entry{
		{
			Provider:          "Anthropic",
			ModelName:         "claude-3-haiku",
			Modalities:        []string{models.ModalityText},
			ContextWindow:     200000,
			MaxOutputTokens:   &haikuOut,
			InputCostPerMTok:  0.25,
			OutputCostPerMTok: 1.25,
			SupportsTools:     true,
		},
		{
			Provider:          "Anthropic",
			ModelName:         "claude-3-5-sonnet",
			Modalities:        []string{models.ModalityText, models.ModalityImage},
			ContextWindow:     200000,
			MaxOutputTokens:   &sonnetOut,
			InputCostPerMTok:  3.00,
			OutputCostPerMTok: 15.00,
			SupportsTools:     true,
		},
		{
			Provider:          "OpenAI",
			ModelName:         "gpt-4o-mini",
			Modalities:        []string{models.ModalityText, models.ModalityImage},
			ContextWindow:     128000,
			MaxOutputTokens:   &miniOut,
			InputCostPerMTok:  0.15,
			OutputCostPerMTok: 0.60,
			TokensPerSecond:   &speed,
			SupportsTools:     true,
		},
	}, nil
}
