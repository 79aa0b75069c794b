package backend

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Options carries what a factory needs to build a backend.
type Options struct {
	// BinPath is the engine binary, absolute or on PATH.
	BinPath string

	// Port is used by sidecar engines.
	Port int

	// Timeout bounds a single inference call.
	Timeout time.Duration

	// ReadyTimeout bounds sidecar startup.
	ReadyTimeout time.Duration

	// UseCUDA asks the engine to run on the GPU.
	UseCUDA bool

	Store   *ModelStore
	Servers *ServerManager
}

// Factory builds a backend from options.
type Factory[T Backend] func(opts Options) (T, error)

// Registry maps providers to backend factories.
type Registry[T Backend] struct {
	factories map[BackendProvider]Factory[T]
	mu        sync.RWMutex
}

// NewRegistry creates a new backend registry.
func NewRegistry[T Backend]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[BackendProvider]Factory[T]),
	}
}

// Register adds a factory to the registry.
func (r *Registry[T]) Register(provider BackendProvider, factory Factory[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[provider]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, provider)
	}

	r.factories[provider] = factory
	return nil
}

// New builds the backend registered for provider.
func (r *Registry[T]) New(provider BackendProvider, opts Options) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}

	return factory(opts)
}

// Providers returns the registered providers in sorted order.
func (r *Registry[T]) Providers() []BackendProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]BackendProvider, 0, len(r.factories))
	for p := range r.factories {
		providers = append(providers, p)
	}
	slices.Sort(providers)
	return providers
}

