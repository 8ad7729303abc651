// Package api serves the read-only recommendation queries over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hojomatch/hojocrawl/internal/database"
	"github.com/hojomatch/hojocrawl/internal/domain"
	"github.com/hojomatch/hojocrawl/internal/logger"
)

// maxQueryLimit caps the page size a client can request.
const maxQueryLimit = 200

// PageSearcher is the query surface the API exposes.
type PageSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Page, error)
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(pages PageSearcher, log logger.Interface) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), requestLogger(log.WithComponent("api")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/recommend/pages", searchHandler(pages))

	return router
}

// searchHandler serves the optional full-text query over pages, newest
// first.
func searchHandler(pages PageSearcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()

		limit := database.DefaultQueryLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}

			limit = min(parsed, maxQueryLimit)
		}

		items, err := pages.Search(c.Request.Context(), c.Query("q"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		if items == nil {
			items = []domain.Page{}
		}

		c.JSON(http.StatusOK, gin.H{
			"items": items,
			"kpi": gin.H{
				"elapsed_ms": time.Since(started).Milliseconds(),
				"seeds":      len(items),
			},
		})
	}
}
