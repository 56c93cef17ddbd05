// Package ragdoc converts price records into the documents the vector index
// stores. Build is a pure function: the same record always yields the same
// text, and last_updated never appears in it, so re-scraping unchanged prices
// does not churn the index.
package ragdoc

import (
	"fmt"
	"strings"

	"github.com/tokenscout/tokenscout/internal/models"
)

// Document is the indexable representation of one price record.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Bands holds the price tier thresholds, in USD per input token. They come
// from configuration, not from this package.
type Bands struct {
	CheapBelow     float64
	ExpensiveAbove float64
}

// Price tier labels used in document text.
const (
	TierCheap     = "cheap"
	TierModerate  = "moderately priced"
	TierExpensive = "expensive"
)

// DocumentID derives the stable document id for a record.
func DocumentID(provider, modelName string) string {
	return provider + "/" + modelName
}

// Tier classifies an input price against the bands.
func (b Bands) Tier(inputPricePerToken float64) string {
	switch {
	case inputPricePerToken < b.CheapBelow:
		return TierCheap
	case inputPricePerToken > b.ExpensiveAbove:
		return TierExpensive
	default:
		return TierModerate
	}
}

// Build composes the document for one record.
func Build(record models.PriceRecord, bands Bands) Document {
	modalities := record.ModalityList()
	modalityStr := strings.Join(modalities, ", ")

	parts := []string{
		fmt.Sprintf("%s is a %s model from %s.", record.ModelName, modalityStr, record.Provider),
		fmt.Sprintf("It is a %s option.", bands.Tier(record.InputPricePerToken)),
		fmt.Sprintf("Input tokens cost $%.8f per token.", record.InputPricePerToken),
		fmt.Sprintf("Output tokens cost $%.8f per token.", record.OutputPricePerToken),
		fmt.Sprintf("Context window: %d tokens.", record.ContextWindow),
	}

	if record.MaxOutputTokens != nil {
		parts = append(parts, fmt.Sprintf("Maximum output: %d tokens.", *record.MaxOutputTokens))
	}
	if record.TokensPerSecond != nil {
		parts = append(parts, fmt.Sprintf("Speed: %.1f tokens/second.", *record.TokensPerSecond))
	}
	if record.SupportsTools {
		parts = append(parts, "Supports function calling and tools.")
	}

	for _, modality := range modalities {
		switch modality {
		case models.ModalityText:
			parts = append(parts, "Suitable for text generation, analysis, and conversation.")
		case models.ModalityImage:
			parts = append(parts, "Can process and analyze images.")
		case models.ModalityAudio:
			parts = append(parts, "Supports audio processing and transcription.")
		case models.ModalityVideo:
			parts = append(parts, "Can analyze video content.")
		}
	}

	metadata := map[string]any{
		"model_name":             record.ModelName,
		"provider":               record.Provider,
		"modalities":             modalityStr,
		"input_price_per_token":  record.InputPricePerToken,
		"output_price_per_token": record.OutputPricePerToken,
		"context_window":         record.ContextWindow,
		"supports_tools":         record.SupportsTools,
	}
	if record.MaxOutputTokens != nil {
		metadata["max_output_tokens"] = *record.MaxOutputTokens
	}
	if record.TokensPerSecond != nil {
		metadata["tokens_per_second"] = *record.TokensPerSecond
	}

	return Document{
		ID:       DocumentID(record.Provider, record.ModelName),
		Text:     strings.Join(parts, " "),
		Metadata: metadata,
	}
}
