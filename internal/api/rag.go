package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tokenscout/tokenscout/internal/rag"
)

// RAGHandler serves the semantic search and recommendation endpoints.
type RAGHandler struct {
	svc *rag.Service
}

// NewRAGHandler constructs a RAGHandler.
func NewRAGHandler(svc *rag.Service) *RAGHandler {
	return &RAGHandler{svc: svc}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// Search answers a natural-language model query.
func (h *RAGHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}

	results, err := h.svc.Search(c.Request.Context(), req.Query, req.MaxResults)
	if err != nil {
		respondServiceError(c, err, "search failed")
		return
	}
	respondOK(c, gin.H{
		"query":         req.Query,
		"results":       results,
		"total_results": len(results),
	})
}

// Recommend returns cost-ranked candidates for a use case. Constraints come
// in as query parameters.
func (h *RAGHandler) Recommend(c *gin.Context) {
	useCase := c.Query("use_case")

	var budget *float64
	if raw := strings.TrimSpace(c.Query("budget")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "budget must be a number")
			return
		}
		budget = &v
	}

	var maxTokens *int
	if raw := strings.TrimSpace(c.Query("max_tokens")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "max_tokens must be an integer")
			return
		}
		maxTokens = &v
	}

	set, err := h.svc.Recommend(c.Request.Context(), useCase, budget, maxTokens)
	if err != nil {
		respondServiceError(c, err, "recommendations failed")
		return
	}
	respondOK(c, set)
}

// Index triggers a full rebuild of the vector index from the store.
func (h *RAGHandler) Index(c *gin.Context) {
	count, err := h.svc.IndexAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "indexing failed")
		return
	}
	respondOK(c, gin.H{"indexed": count})
}
