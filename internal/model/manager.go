package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ekisa-team/voicebox/internal/backend"
)

// Loader is the part of a backend the manager needs.
type Loader interface {
	Provider() backend.BackendProvider
	Load(ctx context.Context, modelID string) (string, error)
}

// Manager owns the lifecycle of the single model a process serves.
type Manager struct {
	current   atomic.Pointer[Instance]
	modelType ModelType
	mu        sync.Mutex // serializes Load
}

// NewManager creates a new Manager instance for a given model type.
func NewManager(modelType ModelType) *Manager {
	m := &Manager{modelType: modelType}
	m.current.Store(&Instance{Type: modelType, Status: ModelStatusUnloaded})
	return m
}

// Current returns the current model snapshot. It is never nil.
func (m *Manager) Current() *Instance {
	return m.current.Load()
}

// Loaded reports whether a model is ready to serve.
func (m *Manager) Loaded() bool {
	return m.Current().Loaded()
}

// Load tries each candidate in order and publishes the first that loads.
// Empty candidates are skipped. When all fail the joined errors are returned.
func (m *Manager) Load(ctx context.Context, loader Loader, candidates ...string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, id := range candidates {
		if id == "" {
			continue
		}

		inst := Instance{ID: id, Provider: loader.Provider(), Type: m.modelType}
		m.current.Store(inst.withStatus(ModelStatusLoading))

		slog.Info("Loading model", "type", m.modelType, "provider", inst.Provider, "model_id", id)
		start := time.Now()

		path, err := loader.Load(ctx, id)
		if err != nil {
			slog.Error("Failed to load model", "type", m.modelType, "model_id", id, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			m.current.Store(inst.withError(err))

			if ctx.Err() != nil {
				break
			}
			continue
		}

		inst.Path = path
		loaded := inst.withStatus(ModelStatusLoaded)
		m.current.Store(loaded)

		slog.Info("Model loaded", "type", m.modelType, "model_id", id, "path", path, "elapsed", time.Since(start))
		return loaded, nil
	}

	if len(errs) == 0 {
		return nil, ErrNoCandidates
	}

	return nil, fmt.Errorf("%w: %w", ErrLoadFailed, errors.Join(errs...))
}
