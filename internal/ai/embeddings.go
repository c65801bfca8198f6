package ai

import (
	"context"
	"fmt"
	"sync"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// EmbeddingService maps text to fixed-dimension vectors using Google
// Generative AI (text-embedding-004 by default). Construct one instance and
// share it; the underlying client is created exactly once on first use, no
// matter how many goroutines hit it concurrently.
type EmbeddingService struct {
	cfg *config.Config

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewEmbeddingService(cfg *config.Config) *EmbeddingService {
	return &EmbeddingService{cfg: cfg}
}

func (s *EmbeddingService) init() error {
	s.once.Do(func() {
		if s.cfg.GeminiAPIKey == "" {
			s.initErr = fmt.Errorf("%w: missing GEMINI_API_KEY", models.ErrEmbeddingUnavailable)
			return
		}
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.cfg.GeminiAPIKey))
		if err != nil {
			s.initErr = fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
			return
		}
		s.client = client
	})
	return s.initErr
}

// Dimension returns the vector dimension this deployment is configured for.
// It is fixed for the process lifetime.
func (s *EmbeddingService) Dimension() int {
	return s.cfg.VectorDimensions
}

// EmbedTexts returns one vector per input text, in input order.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to embed")
	}
	if err := s.init(); err != nil {
		return nil, err
	}

	model := s.client.EmbeddingModel(s.cfg.GoogleEmbeddingsModel)
	batch := model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			models.ErrEmbeddingUnavailable, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", models.ErrEmbeddingUnavailable, i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedText is a single-text convenience wrapping a one-element batch.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Close releases the underlying client if it was ever created.
func (s *EmbeddingService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
