package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/tokenscout/tokenscout/internal/models"
)

type compareRequest struct {
	Models       []string `json:"models"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
}

type comparisonItem struct {
	Model            string  `json:"model"`
	Provider         string  `json:"provider"`
	InputTokenPrice  float64 `json:"input_token_price"`
	OutputTokenPrice float64 `json:"output_token_price"`
	Modality         string  `json:"modality"`
	ContextWindow    int     `json:"context_window"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	TotalCost        float64 `json:"total_cost"`
	InputCostRank    int     `json:"input_cost_rank"`
	OutputCostRank   int     `json:"output_cost_rank"`
	TotalCostRank    int     `json:"total_cost_rank"`
	EfficiencyScore  float64 `json:"efficiency_score"`
}

// Compare prices a token scenario across the requested models and ranks them.
func (h *CatalogHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Models) == 0 {
		respondError(c, http.StatusBadRequest, "models must not be empty")
		return
	}
	if req.InputTokens < 0 || req.OutputTokens < 0 {
		respondError(c, http.StatusBadRequest, "token counts must be non-negative")
		return
	}

	var rows []models.PriceRecord
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("model_name IN ?", req.Models).
		Order("provider ASC, model_name ASC").
		Find(&rows).Error; errFind != nil {
		respondError(c, http.StatusInternalServerError, "compare failed")
		return
	}
	if len(rows) == 0 {
		respondError(c, http.StatusNotFound, "no models found with the specified names")
		return
	}

	items := make([]*comparisonItem, 0, len(rows))
	for _, row := range rows {
		inputCost := row.InputPricePerToken * float64(req.InputTokens)
		outputCost := row.OutputPricePerToken * float64(req.OutputTokens)
		totalCost := inputCost + outputCost
		items = append(items, &comparisonItem{
			Model:            row.ModelName,
			Provider:         row.Provider,
			InputTokenPrice:  row.InputPricePerToken,
			OutputTokenPrice: row.OutputPricePerToken,
			Modality:         row.ModalityList()[0],
			ContextWindow:    row.ContextWindow,
			InputCost:        inputCost,
			OutputCost:       outputCost,
			TotalCost:        totalCost,
			EfficiencyScore:  1.0 / (totalCost + 1e-6),
		})
	}

	rank(items, func(it *comparisonItem) float64 { return it.InputCost }, func(it *comparisonItem, r int) { it.InputCostRank = r })
	rank(items, func(it *comparisonItem) float64 { return it.OutputCost }, func(it *comparisonItem, r int) { it.OutputCostRank = r })
	rank(items, func(it *comparisonItem) float64 { return it.TotalCost }, func(it *comparisonItem, r int) { it.TotalCostRank = r })

	respondOK(c, gin.H{
		"comparison": items,
		"summary":    summarize(items, req),
	})
}

// rank assigns 1-based ranks by ascending key without reordering items.
func rank(items []*comparisonItem, key func(*comparisonItem) float64, assign func(*comparisonItem, int)) {
	sorted := make([]*comparisonItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })
	for i, it := range sorted {
		assign(it, i+1)
	}
}

func summarize(items []*comparisonItem, req compareRequest) gin.H {
	cheapest, priciest, efficient := items[0], items[0], items[0]
	bestInput, bestOutput := items[0], items[0]
	var totalSum float64
	minInput, maxInput := items[0].InputTokenPrice, items[0].InputTokenPrice
	minOutput, maxOutput := items[0].OutputTokenPrice, items[0].OutputTokenPrice

	providerCounts := map[string]int{}
	providerTotals := map[string]float64{}

	for _, it := range items {
		totalSum += it.TotalCost
		if it.TotalCost < cheapest.TotalCost {
			cheapest = it
		}
		if it.TotalCost > priciest.TotalCost {
			priciest = it
		}
		if it.EfficiencyScore > efficient.EfficiencyScore {
			efficient = it
		}
		if it.InputCost < bestInput.InputCost {
			bestInput = it
		}
		if it.OutputCost < bestOutput.OutputCost {
			bestOutput = it
		}
		minInput = min(minInput, it.InputTokenPrice)
		maxInput = max(maxInput, it.InputTokenPrice)
		minOutput = min(minOutput, it.OutputTokenPrice)
		maxOutput = max(maxOutput, it.OutputTokenPrice)
		providerCounts[it.Provider]++
		providerTotals[it.Provider] += it.TotalCost
	}

	avgCost := totalSum / float64(len(items))

	providerAvg := make(map[string]float64, len(providerTotals))
	cheapestProvider := ""
	for provider, total := range providerTotals {
		avg := total / float64(providerCounts[provider])
		providerAvg[provider] = avg
		if cheapestProvider == "" || avg < providerAvg[cheapestProvider] {
			cheapestProvider = provider
		}
	}

	return gin.H{
		"total_models": len(items),
		"scenario": gin.H{
			"input_tokens":  req.InputTokens,
			"output_tokens": req.OutputTokens,
		},
		"price_ranges": gin.H{
			"input_token_price":  gin.H{"min": minInput, "max": maxInput, "range": maxInput - minInput},
			"output_token_price": gin.H{"min": minOutput, "max": maxOutput, "range": maxOutput - minOutput},
		},
		"recommendations": gin.H{
			"cheapest_overall": gin.H{
				"model":      cheapest.Model,
				"provider":   cheapest.Provider,
				"total_cost": cheapest.TotalCost,
			},
			"most_efficient": gin.H{
				"model":            efficient.Model,
				"provider":         efficient.Provider,
				"efficiency_score": efficient.EfficiencyScore,
			},
			"best_input_cost":  bestInput.Model,
			"best_output_cost": bestOutput.Model,
			"cost_savings": gin.H{
				"vs_most_expensive": priciest.TotalCost - cheapest.TotalCost,
				"vs_average":        avgCost - cheapest.TotalCost,
			},
		},
		"cost_analysis": gin.H{
			"total_cost_range": gin.H{
				"min":     cheapest.TotalCost,
				"max":     priciest.TotalCost,
				"average": avgCost,
				"spread":  priciest.TotalCost - cheapest.TotalCost,
			},
		},
		"provider_insights": gin.H{
			"provider_distribution":    providerCounts,
			"cheapest_provider":        gin.H{"name": cheapestProvider, "average_cost": providerAvg[cheapestProvider]},
			"provider_cost_comparison": providerAvg,
		},
	}
}
