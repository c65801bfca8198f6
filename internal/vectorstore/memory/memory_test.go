package memory

import (
	"context"
	"math"
	"testing"

	"pdf-rag-backend/models"
)

func vec(id, docID string, chunkIndex int, embedding []float32) models.IndexedVector {
	return models.IndexedVector{
		ID:         id,
		Embedding:  embedding,
		Content:    "content " + id,
		DocumentID: docID,
		ChunkIndex: chunkIndex,
	}
}

func TestSearchScoreContract(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Upsert(ctx, []models.IndexedVector{
		vec("a_0", "a", 0, []float32{1, 0}),
		vec("a_1", "a", 1, []float32{0, 1}),
		vec("a_2", "a", 2, []float32{-1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	// Identical vector scores 1, orthogonal 0, opposite -1
	if math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("identical vector score = %v, want 1", results[0].Score)
	}
	if math.Abs(results[1].Score) > 1e-9 {
		t.Errorf("orthogonal vector score = %v, want 0", results[1].Score)
	}
	if math.Abs(results[2].Score+1) > 1e-9 {
		t.Errorf("opposite vector score = %v, want -1", results[2].Score)
	}

	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered by descending score at %d", i)
		}
	}
}

func TestSearchTopKAndFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Upsert(ctx, []models.IndexedVector{
		vec("a_0", "a", 0, []float32{1, 0}),
		vec("b_0", "b", 0, []float32{1, 0.1}),
		vec("c_0", "c", 0, []float32{1, 0.2}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("topK not honored: got %d results", len(results))
	}

	results, err = s.Search(ctx, []float32{1, 0}, 10, []string{"b", "c"})
	if err != nil {
		t.Fatalf("filtered Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("filter not honored: got %d results", len(results))
	}
	for _, r := range results {
		if r.DocumentID == "a" {
			t.Errorf("filtered-out document returned")
		}
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := New()
	results, err := s.Search(context.Background(), []float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestUpsertOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Upsert(ctx, []models.IndexedVector{vec("a_0", "a", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// Same id again with different content
	updated := vec("a_0", "a", 0, []float32{0, 1})
	updated.Content = "updated"
	if err := s.Upsert(ctx, []models.IndexedVector{updated}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("re-upsert duplicated vector: count = %d", count)
	}

	results, err := s.Search(ctx, []float32{0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Content != "updated" {
		t.Errorf("content not replaced: %q", results[0].Content)
	}
}

func TestDeleteByDocument(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.Upsert(ctx, []models.IndexedVector{
		vec("a_0", "a", 0, []float32{1, 0}),
		vec("a_1", "a", 1, []float32{0, 1}),
		vec("b_0", "b", 0, []float32{1, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := s.DeleteByDocument(ctx, "a"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d after delete, want 1", count)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.DocumentID == "a" {
			t.Errorf("deleted document still searchable")
		}
	}
}

func TestSearchDeterministicTies(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Identical embeddings tie on score; insertion order breaks the tie
	err := s.Upsert(ctx, []models.IndexedVector{
		vec("x_0", "x", 0, []float32{1, 0}),
		vec("y_0", "y", 0, []float32{1, 0}),
		vec("z_0", "z", 0, []float32{1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	for run := 0; run < 5; run++ {
		results, err := s.Search(ctx, []float32{1, 0}, 3, nil)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		want := []string{"x", "y", "z"}
		for i, r := range results {
			if r.DocumentID != want[i] {
				t.Fatalf("run %d: position %d is %s, want %s", run, i, r.DocumentID, want[i])
			}
		}
	}
}
