package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Policy is an externally configurable attempt budget for one action.
type Policy struct {
	Window      time.Duration
	MaxAttempts int
	BlockFor    time.Duration
}

// Decision is the outcome of a limiter check or recorded attempt.
type Decision struct {
	Limited    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter tracks failed attempts per key inside a sliding window and blocks
// a key once its policy budget is exhausted. Keys must be namespaced by
// action (see Key) so independent policies never share state.
type Limiter interface {
	Check(key string, p Policy) Decision
	RecordAttempt(key string, p Policy) Decision
	Clear(key string)
}

// Key composes a limiter key from an action namespace and identity parts.
func Key(action string, identity ...string) string {
	return action + ":" + strings.Join(identity, ":")
}

type record struct {
	attempts     int
	windowStart  time.Time
	blockedUntil time.Time
}

// MemoryLimiter is a mutex-guarded in-memory Limiter. Sufficient for a single
// instance; multi-instance deployments need a shared atomic-increment store
// behind the same interface.
type MemoryLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Check reports whether key is currently blocked. It never consumes an attempt.
func (l *MemoryLimiter) Check(key string, p Policy) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return Decision{Remaining: p.MaxAttempts}
	}
	if now.Before(rec.blockedUntil) {
		return Decision{Limited: true, RetryAfter: rec.blockedUntil.Sub(now)}
	}
	if now.Sub(rec.windowStart) > p.Window {
		delete(l.records, key)
		return Decision{Remaining: p.MaxAttempts}
	}
	return Decision{Remaining: p.MaxAttempts - rec.attempts}
}

// RecordAttempt counts one failed attempt against key. The increment and the
// limit comparison happen under the same lock, so concurrent callers sharing
// a key cannot race past the budget.
func (l *MemoryLimiter) RecordAttempt(key string, p Policy) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || now.Sub(rec.windowStart) > p.Window {
		l.records[key] = &record{attempts: 1, windowStart: now}
		return Decision{Remaining: p.MaxAttempts - 1}
	}

	rec.attempts++
	if rec.attempts >= p.MaxAttempts {
		rec.blockedUntil = now.Add(p.BlockFor)
		return Decision{Limited: true, RetryAfter: p.BlockFor}
	}
	return Decision{Remaining: p.MaxAttempts - rec.attempts}
}

// Clear resets the counter for key, typically after a successful sensitive
// action so legitimate users are not penalised for earlier typos.
func (l *MemoryLimiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// Cleanup removes records whose window has long expired and that are not
// currently blocked. Returns the number of removed records.
func (l *MemoryLimiter) Cleanup(olderThan time.Duration) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	cleaned := 0
	for key, rec := range l.records {
		if now.Sub(rec.windowStart) > olderThan && now.After(rec.blockedUntil) {
			delete(l.records, key)
			cleaned++
		}
	}
	return cleaned
}

// StartJanitor starts a goroutine that cleans stale records every interval.
// Stop it by cancelling the context.
func (l *MemoryLimiter) StartJanitor(ctx context.Context, interval, olderThan time.Duration) {
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup(olderThan)
			}
		}
	}()
}
