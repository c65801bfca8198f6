package config

import (
	"errors"
	"testing"

	"pdf-rag-backend/models"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("CHUNK_OVERLAP", "")
	t.Setenv("VECTOR_BACKEND", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking defaults = (%d, %d), want (500, 50)", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopKResults != 5 {
		t.Errorf("TopKResults = %d, want 5", cfg.TopKResults)
	}
	if cfg.VectorBackend != "chroma" {
		t.Errorf("VectorBackend = %q, want chroma", cfg.VectorBackend)
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GEMINI_API_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without GEMINI_API_KEY")
	}
}

func TestLoadConfigRejectsBadChunking(t *testing.T) {
	cases := []struct{ size, overlap string }{
		{"0", "0"},
		{"-10", "0"},
		{"100", "100"},
		{"100", "200"},
		{"100", "-1"},
	}
	for _, tc := range cases {
		setBaseEnv(t)
		t.Setenv("CHUNK_SIZE", tc.size)
		t.Setenv("CHUNK_OVERLAP", tc.overlap)

		_, err := LoadConfig()
		if !errors.Is(err, models.ErrConfiguration) {
			t.Errorf("size=%s overlap=%s: want ErrConfiguration, got %v", tc.size, tc.overlap, err)
		}
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VECTOR_BACKEND", "pinecone")

	_, err := LoadConfig()
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("want ErrConfiguration, got %v", err)
	}

	setBaseEnv(t)
	t.Setenv("VECTOR_BACKEND", "memory")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.VectorBackend != "memory" {
		t.Errorf("VectorBackend = %q", cfg.VectorBackend)
	}
}
