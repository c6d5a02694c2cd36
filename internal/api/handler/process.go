package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/memflow/internal/service"
)

// ProcessHandler exposes the extraction pipeline over HTTP. The request body
// is the same queue event the worker consumes, which makes the endpoint a
// drop-in replay and debugging surface.
type ProcessHandler struct {
	pipeline *service.Pipeline
}

// NewProcessHandler creates a new process handler.
// Parameters:
//   - pipeline: pipeline orchestrator instance.
// Returns:
//   - *ProcessHandler: initialized handler.
func NewProcessHandler(pipeline *service.Pipeline) *ProcessHandler {
	return &ProcessHandler{pipeline: pipeline}
}

// Process handles POST /api/v1/process.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ProcessHandler) Process(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body: " + err.Error(),
		})
		return
	}

	result := h.pipeline.Process(c.Request.Context(), body)

	// The pipeline body is already a JSON document.
	c.Data(result.StatusCode, "application/json; charset=utf-8", []byte(result.Body))
}
