// Package httpserver builds the registry's *http.Server.
package httpserver

import (
	"net/http"
	"time"

	"harvestcert/internal/platform/config"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultIdleTimeout       = time.Minute
	defaultMaxHeaderBytes    = 64 << 10
)

type Option func(*http.Server)

// WithReadTimeout overrides the whole-request read deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(s *http.Server) { s.ReadTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(s *http.Server) { s.IdleTimeout = d }
}

// New returns a server listening on cfg.Addr. No WriteTimeout is set; the
// websocket event stream holds responses open indefinitely.
func New(cfg config.Server, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
