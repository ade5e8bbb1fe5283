// Package sink holds in-process event publishers: a structured log sink, an
// in-memory recorder and a fan-out.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/ports"
)

// Logger writes every event to a slog logger at info level.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (l *Logger) Publish(ctx context.Context, events []models.Event) error {
	for _, e := range events {
		attrs := []any{
			"event_id", e.ID,
			"event_type", e.Type,
			"batch_id", e.BatchID,
			"request_id", e.RequestID,
		}
		if e.Status != "" {
			attrs = append(attrs, "status", e.Status)
		}
		l.logger.InfoContext(ctx, "registry event", attrs...)
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, events []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of everything recorded, in publish order.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the recorded event types, in publish order.
func (r *Recorder) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]models.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi publishes to every sink in order. A failing sink does not stop the
// others; the joined error is returned.
type Multi []ports.EventPublisher

func (m Multi) Publish(ctx context.Context, events []models.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
