package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/memflow/internal/repository"
)

// HealthHandler reports readiness of the service's backing stores: the job
// ledger database and, when enabled, the memory index. The payload store and
// model endpoint are probed per invocation, not here.
type HealthHandler struct {
	jobs  *repository.JobRepository
	index *repository.MemoryIndex
}

// NewHealthHandler creates a new health handler.
// Parameters:
//   - jobs: job ledger repository, may be nil when the ledger is disabled.
//   - index: memory index, may be nil when the index is disabled.
// Returns:
//   - *HealthHandler: initialized handler.
func NewHealthHandler(jobs *repository.JobRepository, index *repository.MemoryIndex) *HealthHandler {
	return &HealthHandler{jobs: jobs, index: index}
}

// Health handles GET /health. A disabled component reports "disabled" and
// does not degrade the status; an unreachable one yields 503.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	components := gin.H{}
	healthy := true

	if h.jobs == nil {
		components["ledger"] = "disabled"
	} else if err := h.jobs.Ping(ctx); err != nil {
		components["ledger"] = "error: " + err.Error()
		healthy = false
	} else {
		components["ledger"] = "ok"
	}

	if h.index == nil {
		components["index"] = "disabled"
	} else if err := h.index.Ping(ctx); err != nil {
		components["index"] = "error: " + err.Error()
		healthy = false
	} else {
		components["index"] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
