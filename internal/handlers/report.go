package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearterms/clearterms-backend/internal/config"
	"github.com/clearterms/clearterms-backend/internal/store"
)

type ReportHandler struct {
	cfg   *config.Config
	cache *store.ReportCache
}

func NewReportHandler(cfg *config.Config, cache *store.ReportCache) *ReportHandler {
	return &ReportHandler{cfg: cfg, cache: cache}
}

// GET /report?hash=...&lang=...  or  /report?url_hash=...&lang=...
// Direct cache lookup that bypasses the job system. The extension uses it to
// repopulate history entries without resubmitting content.
func (h *ReportHandler) GetReport(c *gin.Context) {
	key := c.Query("hash")
	if key == "" {
		key = c.Query("url_hash")
	}
	if key == "" {
		RespondError(c, http.StatusBadRequest, `the "hash" or "url_hash" parameter is required`)
		return
	}

	canonical, ok := h.cache.Resolve(key)
	if !ok {
		RespondError(c, http.StatusNotFound, "report not found in cache")
		return
	}

	lang := h.cfg.NormalizeLanguage(c.Query("lang"))
	r, ok, available := h.cache.GetReport(canonical, lang)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":               fmt.Sprintf("report not available in %s", lang),
			"available_languages": available,
		})
		return
	}

	c.JSON(http.StatusOK, r)
}
