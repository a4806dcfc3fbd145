// Package ratelimit provides per-key token bucket rate limiting for the
// MCP tools that drive a shared session.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimited is wrapped by CheckLimit when a call is rejected.
var ErrLimited = errors.New("rate limit exceeded")

// Limiter is a token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // bucket size, and the tokens a new key starts with
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewLimiter creates a limiter refilling rate tokens per second up to burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes a token from key's bucket and reports whether one was there.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			tokens:    float64(l.burst),
			lastCheck: now,
		}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastCheck).Seconds()
	if elapsed > 0 {
		b.tokens += l.rate * elapsed
		if b.tokens > float64(l.burst) {
			b.tokens = float64(l.burst)
		}
		b.lastCheck = now
	}

	if b.tokens < 1.0 {
		return false
	}

	b.tokens--
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default per-tool limits for the MCP server.
// Read-only tools are cheap; tools that call the reasoning service are not.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"generate_event":                 NewLimiter(2.0, 20),      // 120/minute, burst 20
		"apply_mutations":                NewLimiter(2.0, 20),      // 120/minute, burst 20
		"project_kpis":                   NewLimiter(2.0, 20),      // 120/minute, burst 20
		"session_state":                  NewLimiter(2.0, 20),      // 120/minute, burst 20
		"session_next_event":             NewLimiter(10.0/60.0, 3), // 10/minute, burst 3
		"session_accept_recommendations": NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"session_reset":                  NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
	}
}

// CheckLimit checks the rate limit for a given tool name.
// Returns nil if allowed, or an error if rate limited.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}

	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrLimited, toolName)
	}

	return nil
}
