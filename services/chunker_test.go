package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pdf-rag-backend/models"
)

func wordsPage(number, count int) models.PageText {
	words := make([]string, count)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return models.PageText{Number: number, Text: strings.Join(words, " ")}
}

func TestNewChunkerValidation(t *testing.T) {
	cases := []struct {
		size, overlap int
		wantErr       bool
	}{
		{500, 50, false},
		{1, 0, false},
		{0, 0, true},
		{-5, 0, true},
		{100, 100, true},
		{100, 150, true},
		{100, -1, true},
	}
	for _, tc := range cases {
		_, err := NewChunker(tc.size, tc.overlap)
		if tc.wantErr {
			if !errors.Is(err, models.ErrConfiguration) {
				t.Errorf("NewChunker(%d, %d): want ErrConfiguration, got %v", tc.size, tc.overlap, err)
			}
		} else if err != nil {
			t.Errorf("NewChunker(%d, %d): unexpected error %v", tc.size, tc.overlap, err)
		}
	}
}

func TestChunkPagesMultiPage(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	// 600-word page splits into two windows, an empty page contributes
	// nothing, and a page below the overlap still yields one chunk.
	pages := []models.PageText{
		wordsPage(1, 600),
		{Number: 2, Text: "   \n\t "},
		wordsPage(3, 50),
	}

	chunks := chunker.ChunkPages("doc-1", pages)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d: index %d, want %d", i, c.ChunkIndex, i)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d: document id %q", i, c.DocumentID)
		}
	}
	if chunks[0].PageNumber != 1 || chunks[1].PageNumber != 1 {
		t.Errorf("first two chunks should come from page 1, got %d and %d", chunks[0].PageNumber, chunks[1].PageNumber)
	}
	if chunks[2].PageNumber != 3 {
		t.Errorf("last chunk should come from page 3, got %d", chunks[2].PageNumber)
	}

	if n := len(strings.Fields(chunks[0].Content)); n != 500 {
		t.Errorf("first window should hold 500 words, got %d", n)
	}
	// Second window starts at word 450, so 150 words remain
	if n := len(strings.Fields(chunks[1].Content)); n != 150 {
		t.Errorf("second window should hold 150 words, got %d", n)
	}
}

func TestChunkPagesOverlap(t *testing.T) {
	chunker, err := NewChunker(10, 4)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.ChunkPages("doc", []models.PageText{wordsPage(1, 16)})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	first := strings.Fields(chunks[0].Content)
	second := strings.Fields(chunks[1].Content)
	if len(first) != 10 || len(second) != 10 {
		t.Fatalf("window sizes %d and %d, want 10 and 10", len(first), len(second))
	}
	// The second window starts a step of 6 words in, repeating the last 4
	for i := 0; i < 4; i++ {
		if first[6+i] != second[i] {
			t.Errorf("overlap word %d: %q != %q", i, first[6+i], second[i])
		}
	}
}

func TestChunkPagesEmptyDocument(t *testing.T) {
	chunker, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.ChunkPages("doc", []models.PageText{
		{Number: 1, Text: ""},
		{Number: 2, Text: "  "},
	})
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestChunkCountFormula(t *testing.T) {
	size, overlap := 500, 50
	chunker, err := NewChunker(size, overlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	step := size - overlap

	for _, words := range []int{1, 49, 50, 51, 450, 451, 500, 501, 600, 900, 901, 2000} {
		chunks := chunker.ChunkPages("doc", []models.PageText{wordsPage(1, words)})

		want := 1
		if words > size {
			want = 1 + (words-size+step-1)/step
		}
		if len(chunks) != want {
			t.Errorf("%d words: got %d chunks, want %d", words, len(chunks), want)
		}
	}
}

func TestVectorID(t *testing.T) {
	c := models.Chunk{DocumentID: "abc", ChunkIndex: 7}
	if got := c.VectorID(); got != "abc_7" {
		t.Errorf("VectorID() = %q, want %q", got, "abc_7")
	}
}
