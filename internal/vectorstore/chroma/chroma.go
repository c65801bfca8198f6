// Package chroma implements the vector store against Chroma's REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pdf-rag-backend/models"
)

// Store is a client for a single Chroma collection. The collection is
// created with cosine distance on first use, so Search scores follow the
// score = 1 - distance contract directly.
type Store struct {
	baseURL    string
	collection string
	httpClient *http.Client

	mu           sync.Mutex
	collectionID string
}

func New(baseURL, collection string) *Store {
	return &Store{
		baseURL:    baseURL,
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ensureCollection resolves the collection id, creating the collection if
// it does not exist yet. The id is cached for the lifetime of the store.
func (s *Store) ensureCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionID != "" {
		return s.collectionID, nil
	}

	payload := map[string]any{
		"name":          s.collection,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
		"get_or_create": true,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: collection response missing id", models.ErrIndexUnavailable)
	}
	s.collectionID = resp.ID
	return s.collectionID, nil
}

func (s *Store) Upsert(ctx context.Context, vectors []models.IndexedVector) error {
	if len(vectors) == 0 {
		return nil
	}
	collID, err := s.ensureCollection(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, len(vectors))
	embeddings := make([][]float32, len(vectors))
	documents := make([]string, len(vectors))
	metadatas := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		ids[i] = v.ID
		embeddings[i] = v.Embedding
		documents[i] = v.Content
		metadatas[i] = map[string]any{
			"document_id": v.DocumentID,
			"page_number": v.PageNumber,
			"chunk_index": v.ChunkIndex,
		}
	}

	payload := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	return s.do(ctx, http.MethodPost, "/api/v1/collections/"+collID+"/upsert", payload, nil)
}

func (s *Store) Search(ctx context.Context, embedding []float32, topK int, documentIDs []string) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	collID, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        topK,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if len(documentIDs) > 0 {
		payload["where"] = map[string]any{
			"document_id": map[string]any{"$in": documentIDs},
		}
	}

	var resp struct {
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/collections/"+collID+"/query", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Documents) == 0 {
		return nil, nil
	}

	docs := resp.Documents[0]
	results := make([]models.SearchResult, 0, len(docs))
	for i, content := range docs {
		r := models.SearchResult{Content: content}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			r.Score = 1 - resp.Distances[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			meta := resp.Metadatas[0][i]
			if v, ok := meta["document_id"].(string); ok {
				r.DocumentID = v
			}
			if v, ok := meta["page_number"].(float64); ok {
				r.PageNumber = int(v)
			}
			if v, ok := meta["chunk_index"].(float64); ok {
				r.ChunkIndex = int(v)
			}
		}
		results = append(results, r)
	}
	return results, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	collID, err := s.ensureCollection(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"where": map[string]any{"document_id": documentID},
	}
	return s.do(ctx, http.MethodPost, "/api/v1/collections/"+collID+"/delete", payload, nil)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	collID, err := s.ensureCollection(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.do(ctx, http.MethodGet, "/api/v1/collections/"+collID+"/count", nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", models.ErrIndexUnavailable, method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decoding response: %v", models.ErrIndexUnavailable, err)
		}
	}
	return nil
}
