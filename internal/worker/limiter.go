package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter implements per-user rate limiting. It is the first line of
// defense against burst voting: a flood of actions from one identity
// is throttled before the collusion detector ever sees it.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a per-user rate limiter allowing the given number
// of actions per minute.
func NewLimiter(actionsPerMinute float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(actionsPerMinute / 60),
		defaultBurst: burst,
	}
}

// Wait blocks until the user may act or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context, userID string) error {
	return l.getLimiter(userID).Wait(ctx)
}

// Allow checks whether the user may act right now without waiting.
func (l *Limiter) Allow(userID string) bool {
	return l.getLimiter(userID).Allow()
}

// getLimiter returns the rate limiter for a user.
func (l *Limiter) getLimiter(userID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[userID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[userID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[userID] = limiter

	return limiter
}

// SetUserRate sets a custom rate limit for a specific user, e.g. a
// verified responder allowed to act faster than the default.
func (l *Limiter) SetUserRate(userID string, actionsPerMinute float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[userID] = rate.NewLimiter(rate.Limit(actionsPerMinute/60), burst)
}
