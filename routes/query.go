package routes

import (
	"errors"
	"net/http"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/telemetry"
	"pdf-rag-backend/models"
	"pdf-rag-backend/services"
	"pdf-rag-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// respondWithStageError maps pipeline stage errors to HTTP statuses.
// Unavailable dependencies are 503, a malformed generator response is 502,
// everything else is an internal error.
func respondWithStageError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrEmbeddingUnavailable):
		utils.RespondWithServiceUnavailable(c, "Embedding service is unavailable")
	case errors.Is(err, models.ErrIndexUnavailable):
		utils.RespondWithServiceUnavailable(c, "Vector index is unavailable")
	case errors.Is(err, models.ErrGenerationUnavailable):
		utils.RespondWithServiceUnavailable(c, "Answer generation is unavailable")
	case errors.Is(err, models.ErrGenerationProtocol):
		utils.RespondWithBadGateway(c, "Answer generator returned a malformed response")
	case errors.Is(err, models.ErrExtraction):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "extraction_failed",
			"Could not extract text from the document", nil)
	default:
		utils.RespondWithInternalError(c, message, gin.H{"error": err.Error()})
	}
}

// SetupQueryRoutes registers the RAG query endpoint and chat session
// management.
func SetupQueryRoutes(
	router *gin.Engine,
	cfg *config.Config,
	pipeline *services.RAGPipeline,
	chats *services.ChatService,
	cache *services.AnswerCache,
	metrics *telemetry.Metrics,
) {
	router.POST("/query", func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "question is required", gin.H{"error": err.Error()})
			return
		}

		topK := req.TopK
		if topK <= 0 {
			topK = cfg.TopKResults
		}

		ctx := c.Request.Context()
		session, err := chats.GetOrCreateSession(ctx, req.SessionID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to resolve chat session", nil)
			return
		}

		if _, err := chats.AddMessage(ctx, session.ID, models.RoleUser, req.Question, nil); err != nil {
			utils.RespondWithInternalError(c, "Failed to record question", nil)
			return
		}

		if answer := cache.Get(ctx, req.Question, topK, req.DocumentIDs); answer != nil {
			if metrics != nil {
				metrics.RecordQuery(true)
			}
			if _, err := chats.AddMessage(ctx, session.ID, models.RoleAssistant, answer.Answer, answer.Sources); err != nil {
				logger.Warn("Failed to record cached answer", "session_id", session.ID, "error", err)
			}
			c.JSON(http.StatusOK, models.QueryResponse{
				Answer:    answer.Answer,
				Sources:   answer.Sources,
				SessionID: session.ID,
				Cached:    true,
			})
			return
		}

		answer, err := pipeline.Query(ctx, req.Question, req.DocumentIDs, topK)
		if err != nil {
			respondWithStageError(c, err, "Query failed")
			return
		}
		if metrics != nil {
			metrics.RecordQuery(false)
		}
		cache.Set(ctx, req.Question, topK, req.DocumentIDs, answer)

		if _, err := chats.AddMessage(ctx, session.ID, models.RoleAssistant, answer.Answer, answer.Sources); err != nil {
			logger.Warn("Failed to record answer", "session_id", session.ID, "error", err)
		}

		c.JSON(http.StatusOK, models.QueryResponse{
			Answer:    answer.Answer,
			Sources:   answer.Sources,
			SessionID: session.ID,
		})
	})

	router.GET("/sessions", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		sessions, err := chats.ListSessions(ctx, 20)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list sessions", nil)
			return
		}
		c.JSON(http.StatusOK, sessions)
	})

	router.GET("/sessions/:sessionID", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		detail, err := chats.GetSessionDetail(ctx, c.Param("sessionID"))
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Session not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load session", nil)
			return
		}
		c.JSON(http.StatusOK, detail)
	})

	router.DELETE("/sessions/:sessionID", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		if err := chats.DeleteSession(ctx, c.Param("sessionID")); err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Session not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete session", nil)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
