package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/services"
)

const TaskDocumentIngest = "document:ingest"

type IngestPayload struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
}

func NewIngestTask(documentID, filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		DocumentID: documentID,
		FilePath:   filePath,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskDocumentIngest,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// Enqueuer wraps an asynq client behind the services.TaskEnqueuer
// interface.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

var _ services.TaskEnqueuer = (*Enqueuer)(nil)

func (e *Enqueuer) EnqueueIngest(documentID, filePath string) (string, error) {
	task, err := NewIngestTask(documentID, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to build ingest task: %v", err)
	}
	info, err := e.client.Enqueue(task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue ingest task: %v", err)
	}
	return info.ID, nil
}

// IngestProcessor is the worker-side handler for ingestion tasks.
type IngestProcessor struct {
	documents *services.DocumentService
}

func NewIngestProcessor(documents *services.DocumentService) *IngestProcessor {
	return &IngestProcessor{documents: documents}
}

// ProcessIngest ingests one document. Bad payloads skip retry; processing
// failures are retried by asynq up to the task's MaxRetry.
func (p *IngestProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing ingest task", "document_id", payload.DocumentID)
	if err := p.documents.Process(ctx, payload.DocumentID, payload.FilePath); err != nil {
		return err
	}
	return nil
}
