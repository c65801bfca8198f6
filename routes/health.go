package routes

import (
	"net/http"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/vectorstore"
	"pdf-rag-backend/utils"

	"github.com/gin-gonic/gin"
)

// SetupHealthRoutes registers the health probe and model management
// endpoints.
func SetupHealthRoutes(
	router *gin.Engine,
	cfg *config.Config,
	llm *ai.OllamaClient,
	store vectorstore.Store,
) {
	router.GET("/health", func(c *gin.Context) {
		available := llm.IsAvailable(c.Request.Context())

		var modelNames []string
		if available {
			names, err := llm.ListModels(c.Request.Context())
			if err != nil {
				logger.Warn("Failed to list models", "error", err)
			} else {
				modelNames = names
			}
		}

		vectorCount := -1
		if count, err := store.Count(c.Request.Context()); err == nil {
			vectorCount = count
		}

		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"ollama_available": available,
			"available_models": modelNames,
			"vector_count":     vectorCount,
		})
	})

	router.POST("/models/pull", func(c *gin.Context) {
		var req struct {
			Model string `json:"model"`
		}
		// Body is optional; an empty model falls back to the configured one
		_ = c.ShouldBindJSON(&req)

		modelName := req.Model
		if modelName == "" {
			modelName = cfg.OllamaModel
		}

		if !llm.IsAvailable(c.Request.Context()) {
			utils.RespondWithServiceUnavailable(c, "Ollama is not available")
			return
		}

		if !llm.PullModel(c.Request.Context(), modelName) {
			utils.RespondWithInternalError(c, "Failed to pull model", gin.H{"model": modelName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "model": modelName})
	})
}
