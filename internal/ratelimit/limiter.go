// Package ratelimit implements per-identity fixed-window admission
// control for the generation endpoint.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the identity's window resets. Only
	// meaningful when Allowed is false.
	RetryAfter time.Duration
}

type record struct {
	count       int
	windowStart time.Time
}

// Limiter counts requests per identity in fixed windows. A window is
// not a sliding log: bursts of up to twice the limit can land around a
// window boundary, an accepted approximation for a single-process
// deployment. Records are never reaped on their own; stale entries are
// overwritten on the identity's next request, or removed by Sweep.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		records: make(map[string]*record),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Limit returns the configured per-window request limit.
func (l *Limiter) Limit() int {
	return l.limit
}

// Check runs one admission decision for an identity. The read-modify-
// write cycle is a single critical section so two concurrent requests
// cannot both claim the last slot.
func (l *Limiter) Check(identity string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	rec, ok := l.records[identity]
	if !ok || now.Sub(rec.windowStart) > l.window {
		l.records[identity] = &record{count: 1, windowStart: now}
		return Result{Allowed: true, Remaining: l.limit - 1}
	}

	if rec.count >= l.limit {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: rec.windowStart.Add(l.window).Sub(now),
		}
	}

	rec.count++
	return Result{Allowed: true, Remaining: l.limit - rec.count}
}

// Sweep removes records whose window has expired and returns how many
// were dropped. Optional: without it memory grows with the number of
// distinct identities ever seen.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for identity, rec := range l.records {
		if now.Sub(rec.windowStart) > l.window {
			delete(l.records, identity)
			dropped++
		}
	}
	return dropped
}

// Sweeper adapts a Limiter to the background worker's processor
// interface.
type Sweeper struct {
	limiter *Limiter
}

func NewSweeper(limiter *Limiter) *Sweeper {
	return &Sweeper{limiter: limiter}
}

func (s *Sweeper) Process(ctx context.Context) error {
	if dropped := s.limiter.Sweep(); dropped > 0 {
		log.Printf("ratelimit: swept %d stale records", dropped)
	}
	return nil
}
