package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/memflow/internal/repository"
)

// JobsHandler exposes the processed-job ledger.
type JobsHandler struct {
	jobs *repository.JobRepository
}

// NewJobsHandler creates a new jobs handler.
// Parameters:
//   - jobs: job ledger repository, may be nil when the ledger is disabled.
// Returns:
//   - *JobsHandler: initialized handler.
func NewJobsHandler(jobs *repository.JobRepository) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// List handles GET /api/v1/jobs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobsHandler) List(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Job ledger is disabled",
		})
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	entries, err := h.jobs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list jobs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  entries,
		"count": len(entries),
	})
}

// Get handles GET /api/v1/jobs/:jobId. A job ID can appear multiple times in
// the ledger when the queue redelivers, so the response is a list.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobsHandler) Get(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Job ledger is disabled",
		})
		return
	}

	jobID := c.Param("jobId")
	entries, err := h.jobs.GetByJobID(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to look up job: " + err.Error(),
		})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found: " + jobID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  entries,
		"count": len(entries),
	})
}
