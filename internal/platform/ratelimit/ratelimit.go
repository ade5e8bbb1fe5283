// Package ratelimit throttles API clients per key (the client IP by default).
//
// Two stores are provided: Memory keeps a sliding window per key in process,
// Redis keeps fixed windows shared by every server instance.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is set when the request was refused.
	RetryAfter time.Duration
}

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}
