// Package vectorstore defines the vector index abstraction the RAG pipeline
// writes to and searches against.
package vectorstore

import (
	"context"

	"pdf-rag-backend/models"
)

// Store is a vector index keyed by deterministic chunk ids. Upserting the
// same id again replaces the stored vector, which makes re-ingesting a
// document idempotent.
//
// Search scores derive from cosine distance as score = 1 - distance, so
// identical vectors score 1.0 and higher is more similar.
type Store interface {
	// Upsert inserts or replaces vectors by id.
	Upsert(ctx context.Context, vectors []models.IndexedVector) error

	// Search returns up to topK nearest neighbours ordered by descending
	// score. A non-empty documentIDs slice restricts results to chunks
	// belonging to those documents.
	Search(ctx context.Context, embedding []float32, topK int, documentIDs []string) ([]models.SearchResult, error)

	// DeleteByDocument removes every vector belonging to the document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count reports how many vectors the index currently holds.
	Count(ctx context.Context) (int, error)
}
