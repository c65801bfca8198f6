package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"pdf-rag-backend/internal/ai"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/vectorstore"
	"pdf-rag-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const systemPromptTemplate = `You are a helpful assistant that answers questions based on the provided context.

Instructions:
- Answer the question using ONLY the information from the context below
- If the context doesn't contain enough information, say so clearly
- Cite specific sections when relevant
- Be concise and direct

Context:
%s
`

// noContextSentinel is what the generator sees when retrieval comes back
// empty. The model is instructed to admit it cannot answer rather than
// hallucinate.
const noContextSentinel = "No relevant context found."

// PageExtractor pulls per-page text out of a stored file.
type PageExtractor interface {
	ExtractPages(filePath string) ([]models.PageText, error)
}

// Embedder maps texts to vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a prompt and system instruction.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (*ai.GenerateResponse, error)
}

// RAGPipeline orchestrates ingestion (extract, chunk, embed, index) and
// querying (embed, search, assemble context, generate). Every stage
// propagates its error unchanged; there are no retries or fallbacks here.
type RAGPipeline struct {
	extractor PageExtractor
	chunker   *Chunker
	embedder  Embedder
	store     vectorstore.Store
	generator Generator
}

func NewRAGPipeline(extractor PageExtractor, chunker *Chunker, embedder Embedder, store vectorstore.Store, generator Generator) *RAGPipeline {
	return &RAGPipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		generator: generator,
	}
}

// Ingest processes a PDF into the vector index and reports how many chunks
// and pages it produced. Vector ids are derived from the document id and
// chunk index, so ingesting the same document again overwrites its previous
// vectors instead of duplicating them.
func (p *RAGPipeline) Ingest(ctx context.Context, filePath, documentID string) (chunkCount, pageCount int, err error) {
	tracer := otel.Tracer("rag-pipeline")
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", documentID))

	pages, err := p.extractor.ExtractPages(filePath)
	if err != nil {
		return 0, 0, err
	}

	chunks := p.chunker.ChunkPages(documentID, pages)
	if len(chunks) == 0 {
		logger.Warn("Document produced no chunks", "document_id", documentID)
		return 0, len(pages), nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, len(pages), err
	}

	vectors := make([]models.IndexedVector, len(chunks))
	for i, c := range chunks {
		vectors[i] = models.IndexedVector{
			ID:         c.VectorID(),
			Embedding:  embeddings[i],
			Content:    c.Content,
			DocumentID: c.DocumentID,
			PageNumber: c.PageNumber,
			ChunkIndex: c.ChunkIndex,
		}
	}
	if err := p.store.Upsert(ctx, vectors); err != nil {
		return 0, len(pages), err
	}

	span.SetAttributes(
		attribute.Int("document.pages", len(pages)),
		attribute.Int("document.chunks", len(chunks)),
	)
	return len(chunks), len(pages), nil
}

// Query answers a question against the indexed documents. An empty index or
// an all-filtered-out search still reaches the generator, with a sentinel
// context telling the model nothing relevant was found.
func (p *RAGPipeline) Query(ctx context.Context, question string, documentIDs []string, topK int) (*models.RAGAnswer, error) {
	tracer := otel.Tracer("rag-pipeline")
	ctx, span := tracer.Start(ctx, "rag.query")
	defer span.End()
	span.SetAttributes(
		attribute.Int("query.top_k", topK),
		attribute.Int("query.document_filter_size", len(documentIDs)),
	)

	queryEmbedding, err := p.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	results, err := p.store.Search(ctx, queryEmbedding, topK, documentIDs)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("query.results", len(results)))

	system := fmt.Sprintf(systemPromptTemplate, buildContext(results))
	resp, err := p.generator.Generate(ctx, system, question)
	if err != nil {
		return nil, err
	}

	return &models.RAGAnswer{
		Answer:  resp.Content,
		Sources: projectSources(results),
	}, nil
}

// DeleteDocument removes a document's vectors from the index.
func (p *RAGPipeline) DeleteDocument(ctx context.Context, documentID string) error {
	return p.store.DeleteByDocument(ctx, documentID)
}

// buildContext renders search results as numbered blocks for the prompt.
func buildContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return noContextSentinel
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[%d] (Page %d, Relevance: %.2f)\n%s", i+1, r.PageNumber, r.Score, r.Content)
	}
	return strings.Join(parts, "\n\n")
}

// projectSources maps search results into the client-facing shape: content
// trimmed to a 200-character preview and scores rounded to 3 decimals.
func projectSources(results []models.SearchResult) []models.Source {
	sources := make([]models.Source, len(results))
	for i, r := range results {
		content := r.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		sources[i] = models.Source{
			Content:        content,
			DocumentID:     r.DocumentID,
			PageNumber:     r.PageNumber,
			RelevanceScore: math.Round(r.Score*1000) / 1000,
		}
	}
	return sources
}
