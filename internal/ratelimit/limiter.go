package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents an endpoint family of the provider
type API string

const (
	// APIDatasets represents the dataset and time-series endpoints
	APIDatasets API = "datasets"
	// APIDatatables represents the paginated table endpoints
	APIDatatables API = "datatables"
)

// Limiter paces requests per endpoint family. It is safe for concurrent use.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a limiter allowing rps requests per second to each endpoint
// family with the given burst. A non-positive rps means no limit.
func New(rps float64, burst int) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: map[API]*rate.Limiter{
			APIDatasets:   rate.NewLimiter(limit, burst),
			APIDatatables: rate.NewLimiter(limit, burst),
		},
	}
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *Limiter {
	return New(0, 1)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given API may happen now
func (l *Limiter) Allow(api API) bool {
	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request
		return true
	}

	return limiter.Allow()
}

// SetLimit changes the rate of one endpoint family, creating it if needed.
func (l *Limiter) SetLimit(api API, rps float64) {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.limiters[api]; ok {
		existing.SetLimit(limit)
		return
	}
	l.limiters[api] = rate.NewLimiter(limit, 1)
}
