package dashboard

import (
	"context"
	"sync"
	"time"
)

// Recalculator runs recalculations under a Sequencer so that a slow,
// older run never overwrites the result of a newer one. An optional
// artificial latency is applied before each run.
type Recalculator[T any] struct {
	seq     Sequencer
	latency time.Duration

	mu    sync.RWMutex
	last  T
	token Token
	ok    bool
}

// NewRecalculator creates a Recalculator. latency <= 0 disables the delay.
func NewRecalculator[T any](latency time.Duration) *Recalculator[T] {
	return &Recalculator[T]{latency: latency}
}

// Run issues a token, waits for the configured latency and runs fn if the
// token is still the latest. The result is stored and returned with
// applied=true only when no newer Run started in the meantime.
//
// A superseded run returns applied=false and a nil error.
func (r *Recalculator[T]) Run(ctx context.Context, fn func(context.Context, Token) (T, error)) (T, Token, bool, error) {
	var zero T
	token := r.seq.Issue()

	if r.latency > 0 {
		timer := time.NewTimer(r.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, token, false, ctx.Err()
		case <-timer.C:
		}
	}

	if !r.seq.IsLatest(token) {
		return zero, token, false, nil
	}

	result, err := fn(ctx, token)
	if err != nil {
		return zero, token, false, err
	}

	applied := r.seq.Commit(token, func() {
		r.mu.Lock()
		r.last, r.token, r.ok = result, token, true
		r.mu.Unlock()
	})
	if !applied {
		return zero, token, false, nil
	}
	return result, token, true, nil
}

// Latest returns the most recently applied result.
func (r *Recalculator[T]) Latest() (T, Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.token, r.ok
}
