// Package hostlimit bounds per-host fetch concurrency. Each host gets a
// counting semaphore of fixed capacity, built lazily under a single mutex;
// the semaphores themselves are the concurrency tokens.
package hostlimit

import (
	"context"
	"sync"
)

// DefaultPerHost is the default per-host concurrency cap.
const DefaultPerHost = 2

// Registry maps hosts to counting semaphores.
type Registry struct {
	mu       sync.Mutex
	capacity int
	sems     map[string]chan struct{}
}

// NewRegistry creates a registry with the given per-host capacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultPerHost
	}

	return &Registry{
		capacity: capacity,
		sems:     make(map[string]chan struct{}),
	}
}

// Acquire blocks until a slot for host is free or ctx is done. The
// returned release function must be called exactly once, on success and
// failure paths alike.
func (r *Registry) Acquire(ctx context.Context, host string) (release func(), err error) {
	sem := r.semFor(host)

	select {
	case sem <- struct{}{}:
		var once sync.Once

		return func() {
			once.Do(func() { <-sem })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InFlight reports the number of occupied slots for host. Intended for
// tests and diagnostics.
func (r *Registry) InFlight(host string) int {
	return len(r.semFor(host))
}

func (r *Registry) semFor(host string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	sem, ok := r.sems[host]
	if !ok {
		sem = make(chan struct{}, r.capacity)
		r.sems[host] = sem
	}

	return sem
}
