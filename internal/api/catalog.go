package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tokenscout/tokenscout/internal/models"
)

// CatalogHandler serves the relational pricing catalog endpoints. staleAfter,
// when positive, flags records older than the window; they are never deleted.
type CatalogHandler struct {
	db         *gorm.DB
	staleAfter time.Duration
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(db *gorm.DB, staleAfter time.Duration) *CatalogHandler {
	return &CatalogHandler{db: db, staleAfter: staleAfter}
}

// isStale reports whether a record is older than the configured window.
func (h *CatalogHandler) isStale(lastUpdated time.Time) bool {
	return h.staleAfter > 0 && time.Since(lastUpdated) > h.staleAfter
}

// Models lists price records, optionally filtered by provider, modality, and
// minimum context window.
func (h *CatalogHandler) Models(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.PriceRecord{})

	if provider := strings.TrimSpace(c.Query("provider")); provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if raw := strings.TrimSpace(c.Query("min_context_window")); raw != "" {
		minCtx, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "min_context_window must be an integer")
			return
		}
		query = query.Where("context_window >= ?", minCtx)
	}

	var rows []models.PriceRecord
	if errFind := query.Order("provider ASC, model_name ASC").Find(&rows).Error; errFind != nil {
		respondError(c, http.StatusInternalServerError, "list models failed")
		return
	}

	// Modalities are stored as a JSON array, so this filter applies in Go.
	modality := strings.TrimSpace(c.Query("modality"))

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		rowModalities := row.ModalityList()
		if modality != "" && !slices.Contains(rowModalities, modality) {
			continue
		}
		out = append(out, gin.H{
			"provider":               row.Provider,
			"model_name":             row.ModelName,
			"modalities":             rowModalities,
			"context_window":         row.ContextWindow,
			"max_output_tokens":      row.MaxOutputTokens,
			"input_price_per_token":  row.InputPricePerToken,
			"output_price_per_token": row.OutputPricePerToken,
			"tokens_per_second":      row.TokensPerSecond,
			"supports_tools":         row.SupportsTools,
			"last_updated":           row.LastUpdated,
			"stale":                  h.isStale(row.LastUpdated),
		})
	}
	respondOK(c, out)
}

// ModelNames lists distinct model names for use in compare requests.
func (h *CatalogHandler) ModelNames(c *gin.Context) {
	var names []string
	if errFind := h.db.WithContext(c.Request.Context()).
		Model(&models.PriceRecord{}).
		Distinct("model_name").
		Order("model_name ASC").
		Pluck("model_name", &names).Error; errFind != nil {
		respondError(c, http.StatusInternalServerError, "list model names failed")
		return
	}
	respondOK(c, names)
}

// Modalities lists the modality values the catalog recognizes.
func (h *CatalogHandler) Modalities(c *gin.Context) {
	respondOK(c, models.KnownModalities)
}

// Pricing returns the flat per-token pricing view across all providers.
func (h *CatalogHandler) Pricing(c *gin.Context) {
	var rows []models.PriceRecord
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("provider ASC, model_name ASC").
		Find(&rows).Error; errFind != nil {
		respondError(c, http.StatusInternalServerError, "list pricing failed")
		return
	}

	modality := strings.TrimSpace(c.Query("modality"))

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		rowModalities := row.ModalityList()
		if modality != "" && !slices.Contains(rowModalities, modality) {
			continue
		}
		out = append(out, gin.H{
			"model":              row.ModelName,
			"provider":           row.Provider,
			"input_token_price":  row.InputPricePerToken,
			"output_token_price": row.OutputPricePerToken,
			"unit":               "per token",
			"modality":           rowModalities[0],
			"stale":              h.isStale(row.LastUpdated),
		})
	}
	respondOK(c, out)
}
