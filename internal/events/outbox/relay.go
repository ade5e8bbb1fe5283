package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/ports"
	"harvestcert/pkg/platform/circuit"
)

// Relay moves outbox entries to a publisher. Delivery is at-least-once:
// entries are flagged only after the publisher accepted them, in outbox
// order. While the breaker is open the relay polls at the slower backoff
// interval.
type Relay struct {
	store     *Store
	publisher ports.EventPublisher
	breaker   *circuit.Breaker
	logger    *slog.Logger
	metrics   *Metrics

	interval  time.Duration
	backoff   time.Duration
	batchSize int
	now       func() time.Time
}

type RelayOption func(*Relay)

func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBackoff sets the poll interval used while the breaker is open.
func WithBackoff(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.backoff = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithBreaker(b *circuit.Breaker) RelayOption {
	return func(r *Relay) {
		if b != nil {
			r.breaker = b
		}
	}
}

func WithRelayLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithRelayMetrics(m *Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(store *Store, publisher ports.EventPublisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		breaker:   circuit.New("outbox-relay", circuit.WithFailureThreshold(3)),
		logger:    slog.Default(),
		interval:  time.Second,
		backoff:   15 * time.Second,
		batchSize: 100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return nil
		case <-timer.C:
			n, err := r.RelayOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				r.logger.WarnContext(ctx, "outbox relay attempt failed", "error", err)
			}
			next := r.interval
			switch {
			case r.breaker.IsOpen():
				next = r.backoff
			case n == r.batchSize:
				next = 0
			}
			timer.Reset(next)
		}
	}
}

// RelayOnce delivers one batch of pending entries and returns how many were
// delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.Pending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		r.metrics.setBacklog(0)
		return 0, nil
	}

	events := make([]models.Event, len(entries))
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		events[i] = e.Event
		ids[i] = e.Event.ID
	}

	if err := r.publisher.Publish(ctx, events); err != nil {
		r.metrics.incFailure()
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.metrics.setBreakerOpen(true)
			r.logger.ErrorContext(ctx, "outbox relay circuit opened", "error", err)
		}
		return 0, err
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.metrics.setBreakerOpen(false)
		r.logger.InfoContext(ctx, "outbox relay circuit closed")
	}

	if err := r.store.MarkPublished(ctx, ids, r.now()); err != nil {
		// Entries stay pending and are delivered again.
		return 0, err
	}
	r.metrics.addRelayed(len(entries))
	if backlog, err := r.store.Backlog(ctx); err == nil {
		r.metrics.setBacklog(backlog)
	}
	return len(entries), nil
}
