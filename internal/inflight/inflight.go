// Package inflight prevents a second mutation on the same target from starting
// while an earlier one is still outstanding.
package inflight

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned when the key is already held by another request.
var ErrInFlight = errors.New("request already in flight")

// Guard hands out exclusive holds on string keys. The returned release func
// must be called once the guarded work finishes, whatever its outcome.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryGuard creates an empty MemoryGuard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

// Acquire takes the key or fails with ErrInFlight.
func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.held[key]; ok {
		return nil, ErrInFlight
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
