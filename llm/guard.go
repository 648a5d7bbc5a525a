package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Guard stops calls to a failing provider for a cooldown period after
// maxFailures consecutive failures. A zero maxFailures disables it.
// Safe for concurrent use.
type Guard struct {
	mu            sync.Mutex
	maxFailures   int
	cooldown      time.Duration
	failures      int
	disabledUntil time.Time
	now           func() time.Time
}

// NewGuard creates a guard.
func NewGuard(maxFailures int, cooldown time.Duration) *Guard {
	return &Guard{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed.
func (g *Guard) Allow() bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disabledUntil.IsZero() {
		return true
	}
	return g.now().After(g.disabledUntil)
}

// RecordFailure counts a failed call and opens the guard at the threshold.
func (g *Guard) RecordFailure() {
	if g == nil || g.maxFailures <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	if g.failures >= g.maxFailures {
		g.disabledUntil = g.now().Add(g.cooldown)
	}
}

// RecordSuccess closes the guard and resets the failure count.
func (g *Guard) RecordSuccess() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = 0
	g.disabledUntil = time.Time{}
}

// DisabledUntil returns when the guard closes again, or the zero time.
func (g *Guard) DisabledUntil() time.Time {
	if g == nil {
		return time.Time{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabledUntil
}

// guardedClient wraps a Client with a Guard.
type guardedClient struct {
	next  Client
	guard *Guard
}

// Guarded returns a Client that refuses calls with ErrUnavailable while
// guard is open. Invalid input does not count as a provider failure, and
// neither does the caller cancelling.
func Guarded(next Client, guard *Guard) Client {
	return &guardedClient{next: next, guard: guard}
}

func (c *guardedClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if !c.guard.Allow() {
		return ChatResponse{}, fmt.Errorf("%w until %s", ErrUnavailable, c.guard.DisabledUntil().Format(time.RFC3339))
	}

	resp, err := c.next.Chat(ctx, req)
	switch {
	case err == nil:
		c.guard.RecordSuccess()
	case errors.Is(err, ErrInvalidInput), errors.Is(err, context.Canceled):
	default:
		c.guard.RecordFailure()
	}
	return resp, err
}
