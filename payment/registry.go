package payment

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errEvicted is returned by a control that Sweep removed after a caller
// looked it up. Registry.Start retries with a fresh control.
var errEvicted = errors.New("payment control evicted")

// Registry holds one Control per user. Callers without a user id share a
// guest control, which can never get past the auth guard.
type Registry struct {
	deps Deps

	mu       sync.Mutex
	controls map[string]*Control
	wg       sync.WaitGroup
}

func NewRegistry(deps Deps) *Registry {
	if deps.Currency == "" {
		deps.Currency = "INR"
	}
	return &Registry{deps: deps, controls: make(map[string]*Control)}
}

func (r *Registry) For(userID string) *Control {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.controls[userID]
	if !ok {
		c = newControl(userID, &r.deps, &r.wg)
		r.controls[userID] = c
	}
	return c
}

// Start runs Start on userID's control.
func (r *Registry) Start(ctx context.Context, userID string, req Request) (*Attempt, error) {
	for {
		a, err := r.For(userID).Start(ctx, req)
		if errors.Is(err, errEvicted) {
			continue
		}
		return a, err
	}
}

// Processing reports whether userID has an attempt in flight without
// creating a control for them.
func (r *Registry) Processing(userID string) bool {
	r.mu.Lock()
	c, ok := r.controls[userID]
	r.mu.Unlock()
	return ok && c.Processing()
}

// Sweep drops controls that have been idle for at least idle. Attempts they
// held are still answered from the audit trail. It returns how many were
// removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	if r.deps.Now != nil {
		cutoff = r.deps.Now().Add(-idle)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.controls {
		if c.evictIfIdle(cutoff) {
			delete(r.controls, id)
			removed++
		}
	}
	return removed
}

// Find looks up an attempt owned by userID.
func (r *Registry) Find(userID, attemptID string) (*Attempt, bool) {
	r.mu.Lock()
	c, ok := r.controls[userID]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.Attempt(attemptID)
}

// Wait blocks until every in-flight attempt has finished or ctx ends.
// Cancel Deps.Base first so gateway waits resolve.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
