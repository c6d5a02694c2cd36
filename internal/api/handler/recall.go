package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/memflow/internal/service"
)

// RecallHandler handles semantic recall endpoints.
type RecallHandler struct {
	recallService *service.RecallService
}

// NewRecallHandler creates a new recall handler.
// Parameters:
//   - recallService: recall service instance, may be nil when the index is disabled.
// Returns:
//   - *RecallHandler: initialized handler.
func NewRecallHandler(recallService *service.RecallService) *RecallHandler {
	return &RecallHandler{recallService: recallService}
}

type recallRequest struct {
	Query     string `json:"query" binding:"required"`
	MemoryID  string `json:"memory_id"`
	Namespace string `json:"namespace"`
	Category  string `json:"category"`
	Limit     int    `json:"limit"`
}

type recallHit struct {
	ID         string  `json:"id"`
	Score      float32 `json:"score"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	Namespace  string  `json:"namespace"`
	Confidence float64 `json:"confidence"`
}

// Recall handles POST /api/v1/recall.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecallHandler) Recall(c *gin.Context) {
	if h.recallService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Recall is disabled: no memory index configured",
		})
		return
	}

	var req recallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	h.respond(c, service.RecallQuery{
		Query:     req.Query,
		MemoryID:  req.MemoryID,
		Namespace: req.Namespace,
		Category:  req.Category,
		Limit:     req.Limit,
	})
}

// RecallGet handles GET /api/v1/recall for simple queries.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RecallHandler) RecallGet(c *gin.Context) {
	if h.recallService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Recall is disabled: no memory index configured",
		})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'q' is required",
		})
		return
	}

	q := service.RecallQuery{
		Query:     query,
		MemoryID:  c.Query("memory_id"),
		Namespace: c.Query("namespace"),
		Category:  c.Query("category"),
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			q.Limit = n
		}
	}

	h.respond(c, q)
}

func (h *RecallHandler) respond(c *gin.Context, q service.RecallQuery) {
	results, err := h.recallService.Recall(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Recall failed: " + err.Error(),
		})
		return
	}

	hits := make([]recallHit, 0, len(results))
	for _, res := range results {
		hit := recallHit{ID: res.ID, Score: res.Score}
		if res.Payload != nil {
			hit.Content = res.Payload.Content
			hit.Category = res.Payload.Category
			hit.Namespace = res.Payload.Namespace
			hit.Confidence = res.Payload.Confidence
		}
		hits = append(hits, hit)
	}

	c.JSON(http.StatusOK, gin.H{
		"results": hits,
		"count":   len(hits),
	})
}
