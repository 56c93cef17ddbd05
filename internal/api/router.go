package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tokenscout/tokenscout/internal/rag"
	"github.com/tokenscout/tokenscout/internal/scheduler"
)

// NewRouter builds the gin engine with every API route registered. sched may
// be nil in tests that only exercise handlers.
func NewRouter(db *gorm.DB, svc *rag.Service, sched *scheduler.Scheduler, staleAfter time.Duration) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	catalog := NewCatalogHandler(db, staleAfter)
	ragHandler := NewRAGHandler(svc)

	engine.GET("/healthz", func(c *gin.Context) {
		data := gin.H{"message": "Ready"}
		if sched != nil {
			data["scrapers"] = sched.Statuses()
		}
		respondOK(c, data)
	})

	engine.GET("/models", catalog.Models)
	engine.GET("/models/names", catalog.ModelNames)
	engine.GET("/modalities", catalog.Modalities)
	engine.GET("/pricing", catalog.Pricing)
	engine.POST("/pricing/compare", catalog.Compare)

	engine.POST("/rag/search", ragHandler.Search)
	engine.POST("/rag/recommendations", ragHandler.Recommend)
	engine.POST("/rag/index", ragHandler.Index)

	engine.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not found")
	})

	return engine
}
