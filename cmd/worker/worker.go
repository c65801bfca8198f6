package main

import (
	"context"
	"log"
	"time"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/queue"
	"pdf-rag-backend/internal/telemetry"
	"pdf-rag-backend/internal/vectorstore"
	"pdf-rag-backend/internal/vectorstore/chroma"
	"pdf-rag-backend/internal/vectorstore/memory"
	"pdf-rag-backend/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	var store vectorstore.Store
	switch cfg.VectorBackend {
	case "memory":
		store = memory.New()
	default:
		store = chroma.New(cfg.ChromaURL, cfg.ChromaCollection)
	}

	embedder := ai.NewEmbeddingService(cfg)
	defer embedder.Close()
	llm := ai.NewOllamaClient(cfg)

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking configuration:", err)
	}

	pipeline := services.NewRAGPipeline(
		services.NewPDFExtractor(),
		chunker,
		embedder,
		store,
		llm,
	)
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Failed to initialize metrics", "error", err)
	}
	documents := services.NewDocumentService(cfg, db, pipeline, nil, metrics)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"ingest": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewIngestProcessor(documents)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDocumentIngest, processor.ProcessIngest)

	logger.Info("Starting ingestion worker", "redis", cfg.RedisURL, "concurrency", 4)
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
