package services

import (
	"fmt"
	"strings"

	"pdf-rag-backend/models"
)

// Chunker splits page text into overlapping word windows. Size and overlap
// are counted in words, not characters.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker validates the window parameters up front so a bad deployment
// fails at startup instead of producing degenerate chunks.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", models.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", models.ErrConfiguration, chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// ChunkPages chunks every page of a document and assigns chunk indices
// sequentially across the whole document, starting at zero. Pages whose
// text is empty after trimming contribute no chunks but do not break the
// numbering of later pages.
func (c *Chunker) ChunkPages(documentID string, pages []models.PageText) []models.Chunk {
	var chunks []models.Chunk
	index := 0
	for _, page := range pages {
		for _, content := range c.chunkPage(page.Text) {
			chunks = append(chunks, models.Chunk{
				Content:    content,
				DocumentID: documentID,
				PageNumber: page.Number,
				ChunkIndex: index,
			})
			index++
		}
	}
	return chunks
}

// chunkPage slides a window of chunkSize words over the page, advancing by
// chunkSize - chunkOverlap each step. A page with any words yields at least
// one chunk, even when it holds fewer words than the window.
func (c *Chunker) chunkPage(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	var out []string
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
