package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/telemetry"
	"pdf-rag-backend/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskEnqueuer hands documents off to the background ingestion queue.
// Defined here so the queue package can depend on services without a cycle.
type TaskEnqueuer interface {
	EnqueueIngest(documentID, filePath string) (taskID string, err error)
}

// DocumentService owns the document lifecycle: storing the uploaded file,
// tracking status in MongoDB, and routing processing either inline or
// through the task queue depending on file size.
type DocumentService struct {
	cfg        *config.Config
	collection *mongo.Collection
	pipeline   *RAGPipeline
	enqueuer   TaskEnqueuer
	metrics    *telemetry.Metrics
}

func NewDocumentService(cfg *config.Config, db *mongo.Database, pipeline *RAGPipeline, enqueuer TaskEnqueuer, metrics *telemetry.Metrics) *DocumentService {
	return &DocumentService{
		cfg:        cfg,
		collection: db.Collection("documents"),
		pipeline:   pipeline,
		enqueuer:   enqueuer,
		metrics:    metrics,
	}
}

// CreateFromUpload streams an uploaded PDF to disk and creates its pending
// document record. The file hash is computed during the copy; if another
// non-failed document already has the same content, the new file is removed
// and the existing record is returned with duplicate set.
func (s *DocumentService) CreateFromUpload(ctx context.Context, src io.Reader, originalName string, size int64) (doc *models.Document, duplicate bool, err error) {
	if err := os.MkdirAll(s.cfg.FileStorageDir, 0755); err != nil {
		return nil, false, fmt.Errorf("failed to create storage directory: %v", err)
	}

	id := uuid.NewString()
	filename := id + ".pdf"
	filePath := filepath.Join(s.cfg.FileStorageDir, filename)

	dst, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open destination: %v", err)
	}

	hasher := sha256.New()
	written, err := io.Copy(dst, io.TeeReader(io.LimitReader(src, s.cfg.MaxFileSize), hasher))
	closeErr := dst.Close()
	if err != nil || closeErr != nil {
		os.Remove(filePath)
		return nil, false, fmt.Errorf("failed to save file: %v", err)
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))

	// Content dedup: a byte-identical document that is not failed already
	// covers this upload.
	var existing models.Document
	findErr := s.collection.FindOne(ctx, bson.M{
		"file_hash": fileHash,
		"status":    bson.M{"$ne": models.StatusFailed},
	}).Decode(&existing)
	if findErr == nil {
		os.Remove(filePath)
		return &existing, true, nil
	}
	if findErr != mongo.ErrNoDocuments {
		os.Remove(filePath)
		return nil, false, fmt.Errorf("failed to check for duplicates: %v", findErr)
	}

	now := time.Now()
	doc = &models.Document{
		ID:           id,
		Filename:     filename,
		OriginalName: originalName,
		FilePath:     filePath,
		FileHash:     fileHash,
		FileSize:     written,
		Status:       models.StatusPending,
		UploadedAt:   now,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, false, fmt.Errorf("failed to create document record: %v", err)
	}
	if size > 0 && written < size {
		logger.Warn("Upload truncated at size limit", "document_id", id, "declared", size, "written", written)
	}
	return doc, false, nil
}

// StartProcessing routes a pending document to the right execution path.
// Small files are ingested inline before returning; larger ones go to the
// queue and are picked up by a worker. Returns the queue task id when
// processing was deferred.
func (s *DocumentService) StartProcessing(ctx context.Context, doc *models.Document) (taskID string, err error) {
	if s.enqueuer != nil && doc.FileSize > s.cfg.SyncProcessingLimit {
		taskID, err = s.enqueuer.EnqueueIngest(doc.ID, doc.FilePath)
		if err != nil {
			return "", fmt.Errorf("failed to enqueue processing task: %v", err)
		}
		return taskID, nil
	}
	return "", s.Process(ctx, doc.ID, doc.FilePath)
}

// Process runs ingestion for one document and records the outcome. Status
// moves pending -> processing -> completed or failed; updates that would
// move status backwards are dropped by the transition filter, so a stale
// retry cannot clobber a finished document.
func (s *DocumentService) Process(ctx context.Context, documentID, filePath string) error {
	if err := s.transition(ctx, documentID, models.StatusProcessing, "", []string{models.StatusPending, models.StatusFailed}); err != nil {
		return err
	}

	start := time.Now()
	chunkCount, pageCount, err := s.pipeline.Ingest(ctx, filePath, documentID)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordIngest(time.Since(start).Seconds(), chunkCount, status)
	}
	if err != nil {
		logger.Error("Document ingestion failed", "document_id", documentID, "error", err)
		if terr := s.transition(ctx, documentID, models.StatusFailed, err.Error(), []string{models.StatusProcessing}); terr != nil {
			logger.Error("Failed to record ingestion failure", "document_id", documentID, "error", terr)
		}
		return err
	}

	now := time.Now()
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": documentID, "status": models.StatusProcessing},
		bson.M{"$set": bson.M{
			"status":        models.StatusCompleted,
			"chunk_count":   chunkCount,
			"page_count":    pageCount,
			"error_message": "",
			"processed_at":  now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %v", err)
	}
	if result.MatchedCount == 0 {
		logger.Warn("Completion update skipped, document not in processing state", "document_id", documentID)
	}
	logger.Info("Document ingested", "document_id", documentID, "chunks", chunkCount, "pages", pageCount)
	return nil
}

// transition updates status only when the current status is in allowedPrev.
func (s *DocumentService) transition(ctx context.Context, documentID, status, errMsg string, allowedPrev []string) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": documentID, "status": bson.M{"$in": allowedPrev}},
		bson.M{"$set": bson.M{"status": status, "error_message": errMsg}},
	)
	if err != nil {
		return fmt.Errorf("failed to update document status: %v", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("document %s not found or not in an eligible state for %s", documentID, status)
	}
	return nil
}

// List returns all documents, newest uploads first.
func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %v", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %v", err)
	}
	return docs, nil
}

// Get fetches one document by id. Returns mongo.ErrNoDocuments when absent.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	if err := s.collection.FindOne(ctx, bson.M{"_id": documentID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes a document everywhere: vectors, file, then the record.
// A vector store failure is logged and tolerated so a down index cannot
// make documents undeletable.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.pipeline.DeleteDocument(ctx, documentID); err != nil {
		logger.Warn("Failed to delete document vectors", "document_id", documentID, "error", err)
	}

	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to delete document file", "document_id", documentID, "error", err)
		}
	}

	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": documentID}); err != nil {
		return fmt.Errorf("failed to delete document record: %v", err)
	}
	return nil
}
