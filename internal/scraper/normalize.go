package scraper

import (
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tokenscout/tokenscout/internal/models"
)

const tokensPerMTok = 1_000_000

// Normalize validates scraped entries and converts them to price records.
// Invalid entries are dropped and logged per entry; the batch continues.
// Duplicate (provider, model) pairs within one batch keep the last entry so
// the resulting batch upserts cleanly.
func Normalize(scraperName string, entries []Entry) []models.PriceRecord {
	byKey := make(map[string]int, len(entries))
	records := make([]models.PriceRecord, 0, len(entries))

	for _, entry := range entries {
		if reason := validateEntry(entry); reason != "" {
			log.WithFields(log.Fields{
				"scraper":  scraperName,
				"provider": entry.Provider,
				"model":    entry.ModelName,
			}).Warnf("dropping scraped entry: %s", reason)
			continue
		}

		record := models.PriceRecord{
			Provider:            strings.TrimSpace(entry.Provider),
			ModelName:           strings.TrimSpace(entry.ModelName),
			Modalities:          models.EncodeModalities(entry.Modalities),
			ContextWindow:       entry.ContextWindow,
			MaxOutputTokens:     entry.MaxOutputTokens,
			InputPricePerToken:  entry.InputCostPerMTok / tokensPerMTok,
			OutputPricePerToken: entry.OutputCostPerMTok / tokensPerMTok,
			TokensPerSecond:     entry.TokensPerSecond,
			SupportsTools:       entry.SupportsTools,
		}

		key := record.Provider + "\x00" + record.ModelName
		if idx, dup := byKey[key]; dup {
			records[idx] = record
			continue
		}
		byKey[key] = len(records)
		records = append(records, record)
	}
	return records
}

// validateEntry returns a drop reason, or "" when the entry is acceptable.
func validateEntry(entry Entry) string {
	if strings.TrimSpace(entry.Provider) == "" {
		return "missing provider"
	}
	if strings.TrimSpace(entry.ModelName) == "" {
		return "missing model name"
	}
	if entry.ContextWindow < 0 {
		return "negative context window"
	}
	if !validPrice(entry.InputCostPerMTok) || !validPrice(entry.OutputCostPerMTok) {
		return "malformed price"
	}
	return ""
}

func validPrice(p float64) bool {
	return p >= 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
