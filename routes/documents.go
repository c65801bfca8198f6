package routes

import (
	"io"
	"net/http"
	"strings"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/models"
	"pdf-rag-backend/services"
	"pdf-rag-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupDocumentRoutes registers document upload, listing, export and
// deletion endpoints.
func SetupDocumentRoutes(
	router *gin.Engine,
	cfg *config.Config,
	documents *services.DocumentService,
	exports *services.ExportService,
	cache *services.AnswerCache,
) {
	router.POST("/documents", func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file",
				"No PDF file provided", nil)
			return
		}
		defer file.Close()

		ct := header.Header.Get("Content-Type")
		if !strings.Contains(ct, "pdf") && !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type",
				"Only PDF files are allowed", nil)
			return
		}
		if header.Size > cfg.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		// Check the magic bytes without loading the whole file
		headerBuf := make([]byte, 5)
		if _, err := io.ReadFull(file, headerBuf); err != nil {
			utils.RespondWithBadRequest(c, "Cannot read file header", nil)
			return
		}
		if string(headerBuf[:4]) != "%PDF" {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_pdf",
				"File does not appear to be a valid PDF", nil)
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			utils.RespondWithInternalError(c, "Failed to reset file for saving", nil)
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		doc, duplicate, err := documents.CreateFromUpload(ctx, file, header.Filename, header.Size)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to store upload", gin.H{"error": err.Error()})
			return
		}
		if duplicate {
			c.JSON(http.StatusOK, models.UploadResponse{
				ID:       doc.ID,
				Filename: doc.OriginalName,
				Status:   doc.Status,
				Message:  "Document with identical content already exists",
			})
			return
		}

		taskID, err := documents.StartProcessing(c.Request.Context(), doc)
		if err != nil {
			respondWithStageError(c, err, "Processing failed")
			return
		}
		cache.InvalidateAll(c.Request.Context())

		if taskID != "" {
			c.JSON(http.StatusAccepted, models.UploadResponse{
				ID:       doc.ID,
				Filename: doc.OriginalName,
				Status:   models.StatusPending,
				Message:  "Document accepted for processing",
				TaskID:   taskID,
			})
			return
		}

		processed, err := documents.Get(c.Request.Context(), doc.ID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load processed document", nil)
			return
		}
		c.JSON(http.StatusCreated, processed)
	})

	router.GET("/documents", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		docs, err := documents.List(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, docs)
	})

	router.GET("/documents/export", func(c *gin.Context) {
		format := c.DefaultQuery("format", "excel")

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		rows, summary, err := exports.BuildExport(ctx)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}
		if err := exports.StreamExport(c, rows, summary, format); err != nil {
			utils.RespondWithBadRequest(c, err.Error(), nil)
			return
		}
	})

	router.GET("/documents/:documentID", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		doc, err := documents.Get(ctx, c.Param("documentID"))
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	router.DELETE("/documents/:documentID", func(c *gin.Context) {
		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		if err := documents.Delete(ctx, c.Param("documentID")); err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Document not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete document", nil)
			return
		}
		cache.InvalidateAll(ctx)
		c.Status(http.StatusNoContent)
	})
}
