package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when no inference slot frees up within the queue timeout.
var ErrBusy = errors.New("no inference slot available")

// Slots bounds concurrent inference calls.
type Slots struct {
	sem     atomic.Pointer[semaphore.Weighted]
	timeout atomic.Int64

	mu   sync.Mutex
	size int
}

// NewSlots creates n slots; waiters give up after queueTimeout (zero waits
// as long as the caller's context allows).
func NewSlots(n int, queueTimeout time.Duration) *Slots {
	s := &Slots{}
	s.SetLimits(n, queueTimeout)
	return s
}

// SetLimits updates the slot count and queue timeout. The slot set is only
// replaced when n changes; calls already holding a slot release it to the
// set they acquired from.
func (s *Slots) SetLimits(n int, queueTimeout time.Duration) {
	if n < 1 {
		n = 1
	}
	s.timeout.Store(int64(queueTimeout))

	s.mu.Lock()
	defer s.mu.Unlock()
	if n == s.size {
		return
	}
	s.size = n
	s.sem.Store(semaphore.NewWeighted(int64(n)))
}

// Acquire waits for a slot. The returned release func is idempotent.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
	sem := s.sem.Load()

	waitCtx := ctx
	if timeout := time.Duration(s.timeout.Load()); timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrBusy
	}

	return sync.OnceFunc(func() { sem.Release(1) }), nil
}

// acquire wraps Acquire with service error kinds.
func (s *Slots) acquire(ctx context.Context) (func(), error) {
	release, err := s.Acquire(ctx)
	switch {
	case errors.Is(err, ErrBusy):
		return nil, newError(KindBusy, "Server busy", err)
	case err != nil:
		return nil, newError(KindInternal, "Request cancelled", err)
	}
	return release, nil
}
