package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearterms/clearterms-backend/internal/store"
)

type JobsHandler struct {
	jobs *store.JobStore
}

func NewJobsHandler(jobs *store.JobStore) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// GET /jobs/:id
// 404 covers both unknown ids and jobs already removed by the reaper.
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, ok := h.jobs.Get(c.Param("id"))
	if !ok {
		RespondError(c, http.StatusNotFound, "job not found")
		return
	}

	resp := gin.H{
		"status": job.Status,
		"url":    job.URL,
	}
	if job.Status == store.JobDone && job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Status == store.JobError && job.Error != "" {
		resp["error"] = job.Error
	}

	c.JSON(http.StatusOK, resp)
}
