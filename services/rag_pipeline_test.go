package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/vectorstore/memory"
	"pdf-rag-backend/models"
)

type fakeExtractor struct {
	pages []models.PageText
	err   error
}

func (f *fakeExtractor) ExtractPages(filePath string) ([]models.PageText, error) {
	return f.pages, f.err
}

// fakeEmbedder returns a distinct unit vector per distinct text.
type fakeEmbedder struct {
	calls int
	seen  map[string][]float32
	next  int
	err   error
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{seen: make(map[string][]float32)}
}

func (f *fakeEmbedder) embed(text string) []float32 {
	if v, ok := f.seen[text]; ok {
		return v
	}
	v := make([]float32, 8)
	v[f.next%8] = 1
	f.next++
	f.seen[text] = v
	return v
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.embed(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeGenerator struct {
	lastSystem string
	lastPrompt string
	answer     string
	err        error
}

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string) (*ai.GenerateResponse, error) {
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Content: f.answer, Done: true}, nil
}

func newTestPipeline(t *testing.T, extractor *fakeExtractor, gen *fakeGenerator) (*RAGPipeline, *fakeEmbedder, *memory.Store) {
	t.Helper()
	chunker, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	embedder := newFakeEmbedder()
	store := memory.New()
	return NewRAGPipeline(extractor, chunker, embedder, store, gen), embedder, store
}

func TestIngestIndexesChunks(t *testing.T) {
	words := make([]string, 600)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	extractor := &fakeExtractor{pages: []models.PageText{
		{Number: 1, Text: strings.Join(words, " ")},
		{Number: 2, Text: ""},
		{Number: 3, Text: strings.Join(words[:50], " ")},
	}}
	pipeline, _, store := newTestPipeline(t, extractor, &fakeGenerator{answer: "ok"})

	chunkCount, pageCount, err := pipeline.Ingest(context.Background(), "x.pdf", "doc-1")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if chunkCount != 3 {
		t.Errorf("chunkCount = %d, want 3", chunkCount)
	}
	if pageCount != 3 {
		t.Errorf("pageCount = %d, want 3", pageCount)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Errorf("indexed vectors = %d, want 3", count)
	}

	// Re-ingest overwrites instead of duplicating
	if _, _, err := pipeline.Ingest(context.Background(), "x.pdf", "doc-1"); err != nil {
		t.Fatalf("re-Ingest: %v", err)
	}
	count, _ = store.Count(context.Background())
	if count != 3 {
		t.Errorf("re-ingest duplicated vectors: count = %d", count)
	}
}

func TestIngestEmptyDocumentIsNoop(t *testing.T) {
	extractor := &fakeExtractor{pages: []models.PageText{
		{Number: 1, Text: "  "},
		{Number: 2, Text: ""},
	}}
	pipeline, embedder, store := newTestPipeline(t, extractor, &fakeGenerator{})

	chunkCount, pageCount, err := pipeline.Ingest(context.Background(), "empty.pdf", "doc-e")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if chunkCount != 0 || pageCount != 2 {
		t.Errorf("got (%d, %d), want (0, 2)", chunkCount, pageCount)
	}
	if embedder.calls != 0 {
		t.Errorf("embedder called %d times for empty document", embedder.calls)
	}
	if count, _ := store.Count(context.Background()); count != 0 {
		t.Errorf("store holds %d vectors for empty document", count)
	}
}

func TestIngestPropagatesStageErrors(t *testing.T) {
	extractor := &fakeExtractor{err: fmt.Errorf("%w: broken file", models.ErrExtraction)}
	pipeline, _, _ := newTestPipeline(t, extractor, &fakeGenerator{})

	_, _, err := pipeline.Ingest(context.Background(), "x.pdf", "doc")
	if !errors.Is(err, models.ErrExtraction) {
		t.Fatalf("want ErrExtraction, got %v", err)
	}

	extractor = &fakeExtractor{pages: []models.PageText{{Number: 1, Text: "some words here"}}}
	pipeline, embedder, _ := newTestPipeline(t, extractor, &fakeGenerator{})
	embedder.err = fmt.Errorf("%w: quota", models.ErrEmbeddingUnavailable)

	_, _, err = pipeline.Ingest(context.Background(), "x.pdf", "doc")
	if !errors.Is(err, models.ErrEmbeddingUnavailable) {
		t.Fatalf("want ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestQueryEmptyIndexUsesSentinel(t *testing.T) {
	gen := &fakeGenerator{answer: "I don't know."}
	pipeline, _, _ := newTestPipeline(t, &fakeExtractor{}, gen)

	answer, err := pipeline.Query(context.Background(), "what is this?", nil, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(gen.lastSystem, "No relevant context found.") {
		t.Errorf("system prompt missing sentinel, got:\n%s", gen.lastSystem)
	}
	if gen.lastPrompt != "what is this?" {
		t.Errorf("prompt = %q", gen.lastPrompt)
	}
	if answer.Answer != "I don't know." {
		t.Errorf("answer = %q", answer.Answer)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(answer.Sources))
	}
}

func TestQueryBuildsNumberedContext(t *testing.T) {
	extractor := &fakeExtractor{pages: []models.PageText{{Number: 4, Text: "alpha beta gamma"}}}
	gen := &fakeGenerator{answer: "answer"}
	pipeline, embedder, _ := newTestPipeline(t, extractor, gen)

	if _, _, err := pipeline.Ingest(context.Background(), "x.pdf", "doc-1"); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Reuse the chunk's own embedding as the query so it scores 1.0
	embedder.seen["find alpha"] = embedder.embed("alpha beta gamma")

	answer, err := pipeline.Query(context.Background(), "find alpha", nil, 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !strings.Contains(gen.lastSystem, "[1] (Page 4, Relevance: 1.00)\nalpha beta gamma") {
		t.Errorf("context block not formatted as expected:\n%s", gen.lastSystem)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(answer.Sources))
	}
	if answer.Sources[0].PageNumber != 4 {
		t.Errorf("source page = %d, want 4", answer.Sources[0].PageNumber)
	}
	if answer.Sources[0].RelevanceScore != 1 {
		t.Errorf("source score = %v, want 1", answer.Sources[0].RelevanceScore)
	}
}

func TestQueryPropagatesGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: timeout", models.ErrGenerationUnavailable)}
	pipeline, _, _ := newTestPipeline(t, &fakeExtractor{}, gen)

	_, err := pipeline.Query(context.Background(), "question", nil, 5)
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("want ErrGenerationUnavailable, got %v", err)
	}
}

func TestProjectSources(t *testing.T) {
	long := strings.Repeat("a", 250)
	sources := projectSources([]models.SearchResult{
		{Content: long, DocumentID: "d", PageNumber: 2, Score: 0.87654},
		{Content: "short", DocumentID: "d", PageNumber: 3, Score: 0.5},
	})

	if len(sources[0].Content) != 203 || !strings.HasSuffix(sources[0].Content, "...") {
		t.Errorf("long content not truncated to 200 + ellipsis: len=%d", len(sources[0].Content))
	}
	if sources[0].RelevanceScore != 0.877 {
		t.Errorf("score = %v, want 0.877", sources[0].RelevanceScore)
	}
	if sources[1].Content != "short" {
		t.Errorf("short content modified: %q", sources[1].Content)
	}
}
