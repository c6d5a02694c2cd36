package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/memflow/internal/config"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/notification"
	"github.com/timmy/memflow/internal/queue"
	"github.com/timmy/memflow/internal/repository"
	"github.com/timmy/memflow/internal/service"
	"github.com/timmy/memflow/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "memflow-worker",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Re-initialize logger from config
	appLogger = logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "memflow-worker",
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize job ledger
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
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
		appLogger.WithError(err).Fatal("Failed to initialize object storage")
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

	// Optional semantic index
	var indexer *service.Indexer
	if cfg.Index.Enabled {
		memoryIndex, err := repository.NewMemoryIndex(&repository.MemoryIndexConfig{
			Host:            cfg.Index.Host,
			Port:            cfg.Index.Port,
			Collection:      cfg.Index.Collection,
			APIKey:          cfg.Index.APIKey,
			UseTLS:          cfg.Index.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize memory index")
		}
		defer memoryIndex.Close()

		if err := memoryIndex.EnsureCollection(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure index collection")
		}

		embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			Dimensions: cfg.Embedding.Dimensions,
		})
		indexer = service.NewIndexer(embeddingService, memoryIndex)
	}

	pipeline := service.NewPipeline(
		notification.NewParser(),
		storage.NewPayloadFetcher(objectStorage),
		service.NewContentExtractor(modelClient),
		service.NewBatchIngestor(recordStore),
		jobRepo,
		indexer,
	)

	// Cancel the polling loop on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("Shutdown signal received")
		cancel()
	}()

	consumer, err := queue.NewConsumer(ctx, cfg.Queue, pipeline)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize queue consumer")
	}

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.WithError(err).Fatal("Queue consumer exited")
	}

	appLogger.Info("Worker exited")
}
