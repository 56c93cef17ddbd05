package scraper

import (
	"math"
	"testing"

	"github.com/tokenscout/tokenscout/internal/models"
)

func TestNormalize_ConvertsPerMTokToPerToken(t *testing.T) {
	records := Normalize("test", []Entry{
		{
			Provider:          "Anthropic",
			ModelName:         "claude-3-haiku",
			Modalities:        []string{models.ModalityText},
			ContextWindow:     200000,
			InputCostPerMTok:  0.25,
			OutputCostPerMTok: 1.25,
		},
	})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].InputPricePerToken != 0.25/1_000_000 {
		t.Fatalf("unexpected input price: %v", records[0].InputPricePerToken)
	}
	if records[0].OutputPricePerToken != 1.25/1_000_000 {
		t.Fatalf("unexpected output price: %v", records[0].OutputPricePerToken)
	}
}

func TestNormalize_DropsInvalidEntries(t *testing.T) {
	entries := []Entry{
		{Provider: "", ModelName: "no-provider", InputCostPerMTok: 1},
		{Provider: "P", ModelName: "", InputCostPerMTok: 1},
		{Provider: "P", ModelName: "negative-price", InputCostPerMTok: -1},
		{Provider: "P", ModelName: "nan-price", OutputCostPerMTok: math.NaN()},
		{Provider: "P", ModelName: "negative-context", ContextWindow: -5},
		{Provider: "P", ModelName: "good", ContextWindow: 1000, InputCostPerMTok: 0.5, OutputCostPerMTok: 1.0},
	}

	records := Normalize("test", entries)
	if len(records) != 1 {
		t.Fatalf("expected only the valid entry to survive, got %d records", len(records))
	}
	if records[0].ModelName != "good" {
		t.Fatalf("unexpected survivor: %q", records[0].ModelName)
	}
}

func TestNormalize_LastDuplicateWins(t *testing.T) {
	records := Normalize("test", []Entry{
		{Provider: "P", ModelName: "m", InputCostPerMTok: 1},
		{Provider: "P", ModelName: "m", InputCostPerMTok: 2},
	})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].InputPricePerToken != 2.0/1_000_000 {
		t.Fatalf("expected last duplicate to win, got %v", records[0].InputPricePerToken)
	}
}

func TestNormalize_DefaultsModalityToText(t *testing.T) {
	records := Normalize("test", []Entry{{Provider: "P", ModelName: "m"}})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	mods := records[0].ModalityList()
	if len(mods) != 1 || mods[0] != models.ModalityText {
		t.Fatalf("expected text modality fallback, got %v", mods)
	}
}
