package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clearterms/clearterms-backend/internal/config"
	"github.com/clearterms/clearterms-backend/internal/platform/logger"
	"github.com/clearterms/clearterms-backend/internal/services"
	"github.com/clearterms/clearterms-backend/internal/store"
)

type ScanHandler struct {
	log      *logger.Logger
	cfg      *config.Config
	jobs     *store.JobStore
	analysis *services.AnalysisService
}

func NewScanHandler(log *logger.Logger, cfg *config.Config, jobs *store.JobStore, analysis *services.AnalysisService) *ScanHandler {
	return &ScanHandler{
		log:      log.With("handler", "ScanHandler"),
		cfg:      cfg,
		jobs:     jobs,
		analysis: analysis,
	}
}

type scanRequest struct {
	URL                    string `json:"url"`
	Content                string `json:"content"`
	UserLanguagePreference string `json:"user_language_preference"`
}

// POST /scan
// Validates the submission, creates a job and hands it to the worker pool.
// The response only says the job was accepted; processing outcomes are
// observable via GET /jobs/:id.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		RespondError(c, http.StatusBadRequest, `the "content" field is required and must be a non-empty string`)
		return
	}
	if len(req.Content) < h.cfg.MinContentLength {
		RespondError(c, http.StatusBadRequest, "content is too short to analyze")
		return
	}
	if len(req.Content) > h.cfg.MaxContentLength {
		RespondError(c, http.StatusRequestEntityTooLarge, "content exceeds the maximum allowed length")
		return
	}

	language := h.cfg.NormalizeLanguage(req.UserLanguagePreference)
	sourceURL := req.URL
	if sourceURL == "" {
		sourceURL = "unknown"
	}

	jobID := uuid.NewString()
	h.jobs.Create(jobID, sourceURL, req.Content, language)

	if err := h.analysis.Enqueue(jobID); err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			h.jobs.Fail(jobID, "rejected: analysis queue full")
			RespondError(c, http.StatusServiceUnavailable, "server is busy, try again later")
			return
		}
		h.log.Error("enqueue failed", "job_id", jobID, "error", err)
		RespondError(c, http.StatusInternalServerError, "failed to start analysis")
		return
	}

	h.log.Info("job created", "job_id", jobID, "lang", language, "content_len", len(req.Content))
	c.JSON(http.StatusOK, gin.H{"job_id": jobID})
}
