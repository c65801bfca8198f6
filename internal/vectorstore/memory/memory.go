// Package memory provides an in-process vector index. It backs tests and
// single-node deployments where running Chroma is not worth the trouble.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdf-rag-backend/models"
)

type entry struct {
	vector models.IndexedVector
	order  int
}

// Store keeps vectors in a map guarded by a RWMutex. Insertion order is
// remembered so that equal-score results rank deterministically.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextOrd int
}

func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector without id")
		}
		if existing, ok := s.entries[v.ID]; ok {
			existing.vector = v
			continue
		}
		s.entries[v.ID] = &entry{vector: v, order: s.nextOrd}
		s.nextOrd++
	}
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, topK int, documentIDs []string) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	var allowed map[string]bool
	if len(documentIDs) > 0 {
		allowed = make(map[string]bool, len(documentIDs))
		for _, id := range documentIDs {
			allowed[id] = true
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		result models.SearchResult
		order  int
	}
	candidates := make([]scored, 0, len(s.entries))
	for _, e := range s.entries {
		if allowed != nil && !allowed[e.vector.DocumentID] {
			continue
		}
		dist := cosineDistance(embedding, e.vector.Embedding)
		candidates = append(candidates, scored{
			result: models.SearchResult{
				Content:    e.vector.Content,
				DocumentID: e.vector.DocumentID,
				PageNumber: e.vector.PageNumber,
				ChunkIndex: e.vector.ChunkIndex,
				Score:      1 - dist,
			},
			order: e.order,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].result.Score != candidates[j].result.Score {
			return candidates[i].result.Score > candidates[j].result.Score
		}
		return candidates[i].order < candidates[j].order
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	results := make([]models.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = c.result
	}
	return results, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		if e.vector.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// cosineDistance returns 1 - cosine similarity. Zero vectors are treated as
// maximally distant rather than producing NaN.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
