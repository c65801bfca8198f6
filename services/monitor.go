package services

import (
	"context"
	"sync/atomic"
	"time"

	"pdf-rag-backend/internal/logger"
	"pdf-rag-backend/internal/vectorstore"

	"github.com/go-co-op/gocron"
)

// Availability is the minimal probe surface the monitor needs from the
// generation backend.
type Availability interface {
	IsAvailable(ctx context.Context) bool
}

// Monitor runs periodic background checks: an availability probe against
// the generation backend and a vector index count for operational logs.
// Handlers can read the last probe result without paying for a live call.
type Monitor struct {
	scheduler *gocron.Scheduler
	llm       Availability
	store     vectorstore.Store

	llmUp atomic.Bool
}

func NewMonitor(llm Availability, store vectorstore.Store) *Monitor {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Monitor{scheduler: s, llm: llm, store: store}
}

// Start schedules the probes and runs them in the background.
func (m *Monitor) Start() error {
	if _, err := m.scheduler.Every(1 * time.Minute).Tag("ollama-probe").Do(m.probeLLM); err != nil {
		return err
	}
	if _, err := m.scheduler.Every(5 * time.Minute).Tag("vector-stats").Do(m.logVectorStats); err != nil {
		return err
	}
	m.scheduler.StartAsync()

	// Prime the availability flag so the first requests see a real value.
	go m.probeLLM()
	return nil
}

func (m *Monitor) Stop() {
	m.scheduler.Stop()
}

// LLMAvailable reports the result of the most recent probe.
func (m *Monitor) LLMAvailable() bool {
	return m.llmUp.Load()
}

func (m *Monitor) probeLLM() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	up := m.llm.IsAvailable(ctx)
	was := m.llmUp.Swap(up)
	if up != was {
		logger.Info("Generation backend availability changed", "available", up)
	}
}

func (m *Monitor) logVectorStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	count, err := m.store.Count(ctx)
	if err != nil {
		logger.Warn("Vector index stats probe failed", "error", err)
		return
	}
	logger.Debug("Vector index stats", "vectors", count)
}
