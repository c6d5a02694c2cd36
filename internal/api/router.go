package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/memflow/internal/api/handler"
	"github.com/timmy/memflow/internal/api/middleware"
	"github.com/timmy/memflow/internal/repository"
	"github.com/timmy/memflow/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	pipeline *service.Pipeline,
	recallService *service.RecallService,
	jobs *repository.JobRepository,
	index *repository.MemoryIndex,
	mode string,
	allowedOrigins []string,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(allowedOrigins))

	// Create handlers
	healthHandler := handler.NewHealthHandler(jobs, index)
	processHandler := handler.NewProcessHandler(pipeline)
	recallHandler := handler.NewRecallHandler(recallService)
	jobsHandler := handler.NewJobsHandler(jobs)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Pipeline invocation (same event shape as the queue)
		v1.POST("/process", processHandler.Process)

		// Semantic recall over indexed facts
		v1.POST("/recall", recallHandler.Recall)
		v1.GET("/recall", recallHandler.RecallGet)

		// Processed-job ledger
		v1.GET("/jobs", jobsHandler.List)
		v1.GET("/jobs/:jobId", jobsHandler.Get)
	}

	return r
}
