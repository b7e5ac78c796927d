package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearterms/clearterms-backend/internal/store"
)

type HealthHandler struct {
	jobs  *store.JobStore
	cache *store.ReportCache
}

func NewHealthHandler(jobs *store.JobStore, cache *store.ReportCache) *HealthHandler {
	return &HealthHandler{jobs: jobs, cache: cache}
}

// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"jobs_count":  h.jobs.Len(),
		"cache_count": h.cache.Len(),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}
