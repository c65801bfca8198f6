package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/queue"
	"pdf-rag-backend/internal/telemetry"
	"pdf-rag-backend/internal/vectorstore"
	"pdf-rag-backend/internal/vectorstore/chroma"
	"pdf-rag-backend/internal/vectorstore/memory"
	"pdf-rag-backend/middleware"
	"pdf-rag-backend/routes"
	"pdf-rag-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Tracing is optional; the app runs fine without a collector
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("pdf-rag-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Failed to initialize tracing", "error", err)
		} else {
			defer shutdown()
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Failed to initialize metrics", "error", err)
	}

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

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, caching and rate limiting disabled", "error", err)
		rdb = nil
	}

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

	var enqueuer services.TaskEnqueuer
	if rdb != nil {
		asynqClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer asynqClient.Close()
		enqueuer = queue.NewEnqueuer(asynqClient)
	}

	documents := services.NewDocumentService(cfg, db, pipeline, enqueuer, metrics)
	chats := services.NewChatService(db)
	exports := services.NewExportService(documents)
	cache := services.NewAnswerCache(rdb, time.Duration(cfg.AnswerCacheTTL)*time.Second)

	monitor := services.NewMonitor(llm, store)
	if err := monitor.Start(); err != nil {
		logger.Warn("Failed to start background monitor", "error", err)
	}
	defer monitor.Stop()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	routes.SetupHealthRoutes(router, cfg, llm, store)
	routes.SetupDocumentRoutes(router, cfg, documents, exports, cache)
	routes.SetupQueryRoutes(router, cfg, pipeline, chats, cache, metrics)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "vector_backend", cfg.VectorBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
