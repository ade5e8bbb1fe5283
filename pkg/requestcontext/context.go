// Package requestcontext provides transport-independent accessors for
// request-scoped values.
//
// Middleware and hosts (HTTP, CLI, chaincode) set the values; the registry
// service reads them:
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.Now(ctx)
//
// Tests inject them directly:
//
//	ctx = requestcontext.WithCaller(ctx, "bob")
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	id "harvestcert/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Caller returns the authenticated caller identity, or the zero identity.
func Caller(ctx context.Context) id.Identity {
	if who, ok := ctx.Value(callerKey{}).(id.Identity); ok {
		return who
	}
	return ""
}

// WithCaller injects the caller identity.
func WithCaller(ctx context.Context, who id.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, who)
}

// RequestID returns the request ID, or "" when none was assigned.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the time seen by everything downstream of ctx. Used by the
// HTTP middleware, the chaincode host (transaction timestamp) and tests.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
