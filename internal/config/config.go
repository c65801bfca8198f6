package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"pdf-rag-backend/models"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Upload handling
	MaxFileSize         int64
	FileStorageDir      string
	SyncProcessingLimit int64

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	TopKResults      int
	VectorBackend    string // "chroma" (default) or "memory"
	ChromaURL        string
	ChromaCollection string
	VectorDimensions int

	// Embeddings
	GeminiAPIKey          string
	GoogleEmbeddingsModel string

	// Generation (Ollama)
	OllamaHost  string
	OllamaModel string

	// Redis (rate limiting, answer cache, asynq transport)
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	AnswerCacheTTL int // seconds, 0 disables the cache

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_rag"),
		DBName:      getEnv("DB_NAME", "pdf_rag"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		MaxFileSize:         getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB
		FileStorageDir:      getEnv("FILE_STORAGE_DIR", "./storage"),
		SyncProcessingLimit: getEnvInt64("SYNC_PROCESSING_LIMIT", 20971520), // 20MB

		ChunkSize:    getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 50),

		TopKResults:      getEnvInt("TOP_K_RESULTS", 5),
		VectorBackend:    getEnv("VECTOR_BACKEND", "chroma"),
		ChromaURL:        getEnv("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: getEnv("CHROMA_COLLECTION", "documents"),
		VectorDimensions: getEnvInt("VECTOR_DIM", 768),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),

		OllamaHost:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2"),

		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		AnswerCacheTTL: getEnvInt("ANSWER_CACHE_TTL", 300),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	// An overlap >= chunk size would stop the chunking window from
	// advancing; refuse to start rather than hang at ingest time.
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: CHUNK_SIZE must be positive, got %d", models.ErrConfiguration, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: CHUNK_OVERLAP %d must be in [0, CHUNK_SIZE %d)", models.ErrConfiguration, cfg.ChunkOverlap, cfg.ChunkSize)
	}

	switch cfg.VectorBackend {
	case "chroma", "memory":
	default:
		return nil, fmt.Errorf("%w: unknown VECTOR_BACKEND %q", models.ErrConfiguration, cfg.VectorBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
