package models

import (
	"fmt"
	"time"
)

// Document processing status constants. Transitions are monotonic:
// pending -> processing -> completed or failed. A document never regresses
// to an earlier status.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is the metadata record for an uploaded PDF. The embeddings
// themselves live in the vector store; this record only tracks identity,
// lifecycle, and counts.
type Document struct {
	ID           string     `bson:"_id" json:"id"`
	Filename     string     `bson:"filename" json:"filename"`
	OriginalName string     `bson:"original_name" json:"original_name"`
	FilePath     string     `bson:"file_path" json:"-"`
	FileHash     string     `bson:"file_hash" json:"file_hash"`
	FileSize     int64      `bson:"file_size" json:"file_size"`
	PageCount    int        `bson:"page_count" json:"page_count"`
	ChunkCount   int        `bson:"chunk_count" json:"chunk_count"`
	Status       string     `bson:"status" json:"status"`
	ErrorMessage string     `bson:"error_message,omitempty" json:"error_message,omitempty"`
	UploadedAt   time.Time  `bson:"uploaded_at" json:"uploaded_at"`
	ProcessedAt  *time.Time `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// PageText is one page of extracted text. Empty text is valid for pages
// with no extractable content; page numbers are 1-based.
type PageText struct {
	Number int
	Text   string
}

// Chunk is a bounded text span from a single document page. Chunks are
// transient: they exist between the chunker and the vector store and are
// persisted only as their vector-index row.
type Chunk struct {
	Content    string
	DocumentID string
	PageNumber int
	ChunkIndex int
}

// VectorID returns the deterministic vector store id for this chunk.
// Because the id is derived from document id and chunk index, re-ingesting
// the same document overwrites rows instead of duplicating them.
func (c Chunk) VectorID() string {
	return fmt.Sprintf("%s_%d", c.DocumentID, c.ChunkIndex)
}

// IndexedVector is one row in the vector store.
type IndexedVector struct {
	ID         string
	Embedding  []float32
	Content    string
	DocumentID string
	PageNumber int
	ChunkIndex int
}

// SearchResult is a retrieved chunk with its similarity score. Score is
// 1 - cosine distance, so higher means more similar and distance 0 maps
// to score 1.
type SearchResult struct {
	Content    string  `json:"content"`
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Source is the bounded projection of a SearchResult returned to API
// clients: content is truncated to a preview, score is rounded.
type Source struct {
	Content        string  `json:"content"`
	DocumentID     string  `json:"document_id"`
	PageNumber     int     `json:"page_number"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RAGAnswer is the result of one query: the generated answer plus the
// sources its context was assembled from.
type RAGAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// UploadResponse is returned after a successful document upload.
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	TaskID   string `json:"task_id,omitempty"`
}
