package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"pdf-rag-backend/internal/config"
	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/models"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

const (
	probeTimeout = 5 * time.Second
	pullTimeout  = 10 * time.Minute
)

// OllamaClient talks to a locally running Ollama instance. One client is
// shared across all requests; the underlying http.Client pools connections
// so there is no per-call handshake.
type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
}

// GenerateResponse is the structured result of a generation call.
type GenerateResponse struct {
	Content string
	Model   string
	Done    bool
}

// ChatTurn is one prior turn passed to Chat.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewOllamaClient(cfg *config.Config) *OllamaClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OllamaAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &OllamaClient{
		baseURL:    cfg.OllamaHost,
		model:      cfg.OllamaModel,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		breaker:    breaker,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}
}

// Generate sends a single prompt with an optional system instruction and
// returns the generated text. There is no internal retry: timeouts and
// refused connections surface as ErrGenerationUnavailable, and responses
// missing the expected field as ErrGenerationProtocol.
func (c *OllamaClient) Generate(ctx context.Context, system, prompt string) (*GenerateResponse, error) {
	tracer := otel.Tracer("ollama-client")
	ctx, span := tracer.Start(ctx, "ollama.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("ollama.model", c.model),
		attribute.Int("ollama.prompt_chars", len(prompt)),
	)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}
	if system != "" {
		payload["system"] = system
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp struct {
			Response *string `json:"response"`
			Model    string  `json:"model"`
			Done     bool    `json:"done"`
		}
		if err := c.postJSON(ctx, "/api/generate", payload, &resp); err != nil {
			return nil, err
		}
		if resp.Response == nil {
			return nil, fmt.Errorf("%w: missing response field", models.ErrGenerationProtocol)
		}
		return &GenerateResponse{Content: *resp.Response, Model: resp.Model, Done: resp.Done}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("ollama.circuit_breaker_open", true))
			return nil, fmt.Errorf("%w: circuit breaker open", models.ErrGenerationUnavailable)
		}
		span.SetAttributes(attribute.Bool("ollama.error", true))
		return nil, err
	}

	return result.(*GenerateResponse), nil
}

// Chat sends a message history instead of a single prompt.
func (c *OllamaClient) Chat(ctx context.Context, system string, turns []ChatTurn) (*GenerateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	messages := make([]ChatTurn, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, ChatTurn{Role: "system", Content: system})
	}
	messages = append(messages, turns...)

	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var resp struct {
			Message *struct {
				Content string `json:"content"`
			} `json:"message"`
			Model string `json:"model"`
			Done  bool   `json:"done"`
		}
		if err := c.postJSON(ctx, "/api/chat", payload, &resp); err != nil {
			return nil, err
		}
		if resp.Message == nil {
			return nil, fmt.Errorf("%w: missing message field", models.ErrGenerationProtocol)
		}
		return &GenerateResponse{Content: resp.Message.Content, Model: resp.Model, Done: resp.Done}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", models.ErrGenerationUnavailable)
		}
		return nil, err
	}

	return result.(*GenerateResponse), nil
}

// IsAvailable probes the service with a short deadline.
func (c *OllamaClient) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of models the service has available.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", models.ErrGenerationUnavailable, resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGenerationProtocol, err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// PullModel asks the service to download a model. Pulls can take minutes,
// so the call carries its own long timeout and reports only success or
// failure.
func (c *OllamaClient) PullModel(ctx context.Context, name string) bool {
	if name == "" {
		name = c.model
	}
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]any{"name": name, "stream": false})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *OllamaClient) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", models.ErrGenerationUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationProtocol, err)
	}
	return nil
}
