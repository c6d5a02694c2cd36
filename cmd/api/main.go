package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/memflow/internal/api"
	"github.com/timmy/memflow/internal/config"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/repository"
	"github.com/timmy/memflow/internal/service"
	"github.com/timmy/memflow/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	log := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "memflow-api",
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(log)
	defer logger.Sync()

	// Initialize job ledger
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	jobRepo := repository.NewJobRepository(db)

	// Initialize payload storage
	objectStorage, err := storage.NewS3Storage(&storage.S3Config{
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize object storage")
	}

	// Initialize pipeline services
	modelClient := service.NewChatModelClient(&service.ModelConfig{
		Model:     cfg.Model.Model,
		APIKey:    cfg.Model.APIKey,
		BaseURL:   cfg.Model.BaseURL,
		MaxTokens: cfg.Model.MaxTokens,
	})
	recordStore := service.NewHTTPRecordStore(&service.MemoryStoreConfig{
		BaseURL: cfg.Memory.BaseURL,
		APIKey:  cfg.Memory.APIKey,
	})

	// Optional semantic index for recall
	var (
		memoryIndex   *repository.MemoryIndex
		indexer       *service.Indexer
		recallService *service.RecallService
	)
	if cfg.Index.Enabled {
		memoryIndex, err = repository.NewMemoryIndex(&repository.MemoryIndexConfig{
			Host:            cfg.Index.Host,
			Port:            cfg.Index.Port,
			Collection:      cfg.Index.Collection,
			APIKey:          cfg.Index.APIKey,
			UseTLS:          cfg.Index.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize memory index")
		}
		defer memoryIndex.Close()

		if err := memoryIndex.EnsureCollection(context.Background()); err != nil {
			log.WithError(err).Fatal("Failed to ensure index collection")
		}

		embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			Dimensions: cfg.Embedding.Dimensions,
		})
		indexer = service.NewIndexer(embeddingService, memoryIndex)
		recallService = service.NewRecallService(embeddingService, memoryIndex)
	}

	pipeline := service.NewPipeline(
		notification.NewParser(),
		storage.NewPayloadFetcher(objectStorage),
		service.NewContentExtractor(modelClient),
		service.NewBatchIngestor(recordStore),
		jobRepo,
		indexer,
	)

	// Setup router
	router := api.SetupRouter(pipeline, recallService, jobRepo, memoryIndex, cfg.Server.Mode, cfg.Server.CORS.AllowedOrigins)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Server.Port).WithField("mode", cfg.Server.Mode).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
