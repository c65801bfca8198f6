package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/models"
)

func testClient(url string) *OllamaClient {
	return NewOllamaClient(&config.Config{
		OllamaHost:  url,
		OllamaModel: "test-model",
	})
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}
		if req["stream"] != false {
			t.Errorf("stream = %v, want false", req["stream"])
		}
		if req["system"] != "be brief" {
			t.Errorf("system = %v", req["system"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response": "the answer",
			"model":    "test-model",
			"done":     true,
		})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Generate(context.Background(), "be brief", "question")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "the answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if !resp.Done {
		t.Errorf("done = false")
	}
}

func TestGenerateMissingResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"model": "test-model", "done": true})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "", "question")
	if !errors.Is(err, models.ErrGenerationProtocol) {
		t.Fatalf("want ErrGenerationProtocol, got %v", err)
	}
}

func TestGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "", "question")
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("want ErrGenerationUnavailable, got %v", err)
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "", "question")
	if !errors.Is(err, models.ErrGenerationUnavailable) {
		t.Fatalf("want ErrGenerationUnavailable, got %v", err)
	}
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Messages []ChatTurn `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		// System turn is prepended before the history
		if len(req.Messages) != 3 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "hi there"},
			"model":   "test-model",
			"done":    true,
		})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Chat(context.Background(), "be nice", []ChatTurn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hey"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi there" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
	}))
	client := testClient(srv.URL)

	if !client.IsAvailable(context.Background()) {
		t.Errorf("expected available")
	}

	srv.Close()
	if client.IsAvailable(context.Background()) {
		t.Errorf("expected unavailable after server shutdown")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.2"},
				{"name": "mistral"},
			},
		})
	}))
	defer srv.Close()

	names, err := testClient(srv.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(names) != 2 || names[0] != "llama3.2" || names[1] != "mistral" {
		t.Errorf("names = %v", names)
	}
}

func TestPullModel(t *testing.T) {
	var pulled string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		pulled, _ = req["name"].(string)
		json.NewEncoder(w).Encode(map[string]any{"status": "success"})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if !client.PullModel(context.Background(), "mistral") {
		t.Errorf("pull failed")
	}
	if pulled != "mistral" {
		t.Errorf("pulled model = %q", pulled)
	}

	// Empty name falls back to the configured model
	if !client.PullModel(context.Background(), "") {
		t.Errorf("default pull failed")
	}
	if pulled != "test-model" {
		t.Errorf("default pulled model = %q", pulled)
	}
}
