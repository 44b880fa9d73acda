package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until the rate limit allows another request
	Wait(ctx context.Context) error
}

// RequestLimiter caps the steady request rate to the catalog API
type RequestLimiter struct {
	limiter *rate.Limiter
}

// NewRequestLimiter allows requestsPerSecond requests with no burst.
// A non-positive rate disables limiting
func NewRequestLimiter(requestsPerSecond float64) *RequestLimiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &RequestLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until a request is allowed
func (l *RequestLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now without waiting
func (l *RequestLimiter) Allow() bool {
	return l.limiter.Allow()
}

// Pacer inserts a fixed delay before every call after the first.
// The delay ignores cancellation: it keeps the steady-state rate on
// the source no matter how fast the previous call returned
type Pacer struct {
	delay   time.Duration
	sleep   func(time.Duration)
	mu      sync.Mutex
	started bool
}

// NewPacer creates a pacer with the given delay
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: time.Sleep}
}

// NewPacerWithSleep creates a pacer with a custom sleep function for tests
func NewPacerWithSleep(delay time.Duration, sleep func(time.Duration)) *Pacer {
	return &Pacer{delay: delay, sleep: sleep}
}

// Next blocks for the delay unless this is the first call
func (p *Pacer) Next() {
	p.mu.Lock()
	first := !p.started
	p.started = true
	p.mu.Unlock()

	if !first && p.delay > 0 {
		p.sleep(p.delay)
	}
}

// Reset makes the next call behave as the first one
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
}
