package ragdoc

import (
	"strings"
	"testing"
	"time"

	"github.com/tokenscout/tokenscout/internal/models"
)

var testBands = Bands{CheapBelow: 0.000001, ExpensiveAbove: 0.00001}

func haikuRecord() models.PriceRecord {
	maxOut := 4096
	speed := 120.5
	return models.PriceRecord{
		Provider:            "anthropic",
		ModelName:           "claude-3-haiku",
		Modalities:          models.EncodeModalities([]string{"text", "image"}),
		ContextWindow:       200000,
		MaxOutputTokens:     &maxOut,
		InputPricePerToken:  0.00000025,
		OutputPricePerToken: 0.00000125,
		TokensPerSecond:     &speed,
		SupportsTools:       true,
		LastUpdated:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuildDeterministic(t *testing.T) {
	rec := haikuRecord()
	first := Build(rec, testBands)

	rec.LastUpdated = rec.LastUpdated.Add(48 * time.Hour)
	second := Build(rec, testBands)

	if first.Text != second.Text {
		t.Fatalf("text changed between builds:\n%q\n%q", first.Text, second.Text)
	}
	if first.ID != second.ID {
		t.Fatalf("id changed between builds: %q vs %q", first.ID, second.ID)
	}
}

func TestBuildDocumentID(t *testing.T) {
	doc := Build(haikuRecord(), testBands)
	if doc.ID != "anthropic/claude-3-haiku" {
		t.Fatalf("unexpected document id %q", doc.ID)
	}
}

func TestBuildTextContents(t *testing.T) {
	doc := Build(haikuRecord(), testBands)

	for _, want := range []string{
		"claude-3-haiku is a text, image model from anthropic.",
		"It is a cheap option.",
		"Input tokens cost $0.00000025 per token.",
		"Output tokens cost $0.00000125 per token.",
		"Context window: 200000 tokens.",
		"Maximum output: 4096 tokens.",
		"Speed: 120.5 tokens/second.",
		"Supports function calling and tools.",
		"Suitable for text generation, analysis, and conversation.",
		"Can process and analyze images.",
	} {
		if !strings.Contains(doc.Text, want) {
			t.Fatalf("document text missing %q:\n%s", want, doc.Text)
		}
	}
	if strings.Contains(doc.Text, "2026") {
		t.Fatalf("document text must not include last_updated: %s", doc.Text)
	}
}

func TestBuildOmitsOptionalFields(t *testing.T) {
	rec := haikuRecord()
	rec.MaxOutputTokens = nil
	rec.TokensPerSecond = nil
	rec.SupportsTools = false

	doc := Build(rec, testBands)
	for _, absent := range []string{"Maximum output", "Speed:", "tools"} {
		if strings.Contains(doc.Text, absent) {
			t.Fatalf("document text should not contain %q:\n%s", absent, doc.Text)
		}
	}
	if _, ok := doc.Metadata["max_output_tokens"]; ok {
		t.Fatal("metadata should omit max_output_tokens when unset")
	}
}

func TestTier(t *testing.T) {
	tests := []struct {
		price float64
		want  string
	}{
		{0.0000005, TierCheap},
		{0.000001, TierModerate},
		{0.000005, TierModerate},
		{0.00001, TierModerate},
		{0.00002, TierExpensive},
	}
	for _, tc := range tests {
		if got := testBands.Tier(tc.price); got != tc.want {
			t.Fatalf("Tier(%g) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestBuildEmptyModalitiesFallsBackToText(t *testing.T) {
	rec := haikuRecord()
	rec.Modalities = nil
	doc := Build(rec, testBands)
	if !strings.Contains(doc.Text, "is a text model") {
		t.Fatalf("expected text modality fallback:\n%s", doc.Text)
	}
}
