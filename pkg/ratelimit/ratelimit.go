// ABOUTME: Per-service token bucket throttling for Google API requests
// ABOUTME: Keeps a chatty agent from exhausting per-user quota

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Service identifies a Google API for rate limiting purposes.
type Service string

const (
	// ServiceGmail is the Gmail API.
	ServiceGmail Service = "gmail"
	// ServiceCalendar is the Google Calendar API.
	ServiceCalendar Service = "calendar"
)

// Config holds the bucket settings for a service.
type Config struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Defaults sit well below Google's published per-user limits.
var Defaults = map[Service]Config{
	ServiceGmail:    {RequestsPerSecond: 2.0, Burst: 5},
	ServiceCalendar: {RequestsPerSecond: 5.0, Burst: 10},
}

// DefaultBackoff applies when a 429 carries no usable Retry-After.
const DefaultBackoff = 30 * time.Second

// Limiter is a token bucket with an optional pause after a 429 response.
type Limiter struct {
	service Service
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// New creates a limiter using the defaults for service.
func New(service Service) *Limiter {
	cfg, ok := Defaults[service]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, Burst: 10}
	}
	return NewWithConfig(service, cfg)
}

// NewWithConfig creates a limiter with explicit settings. A non-positive
// rate disables throttling.
func NewWithConfig(service Service, cfg Config) *Limiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		service: service,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Service returns the service this limiter throttles.
func (l *Limiter) Service() Service {
	return l.service
}

// Wait blocks until a request may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed immediately.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	return l.limiter.Allow()
}

// RecordRateLimited pauses the limiter after a 429 response. Requests are
// not replayed; only subsequent calls wait.
func (l *Limiter) RecordRateLimited(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	until := time.Now().Add(retryAfter)
	if until.After(l.retryAt) {
		l.retryAt = until
	}
}

// PausedUntil returns the end of the current 429 pause, if any.
func (l *Limiter) PausedUntil() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}
