// Package api exposes the pricing catalog and the RAG operations over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokenscout/tokenscout/internal/pricing"
	"github.com/tokenscout/tokenscout/internal/rag"
)

// respondOK writes the success envelope.
func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// respondError writes the error envelope. message must be safe to show to
// callers: no internals, no upstream error text.
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "error", "message": message})
}

// respondServiceError maps domain errors to status codes.
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, rag.ErrInvalidArgument):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, pricing.ErrNotFound):
		respondError(c, http.StatusNotFound, "not found")
	case errors.Is(err, rag.ErrIndexUnavailable):
		respondError(c, http.StatusServiceUnavailable, "vector index unavailable")
	default:
		respondError(c, http.StatusInternalServerError, fallback)
	}
}
