// Package service implements the harvest certification registry.
//
// A Service owns one registry. Commands are applied one at a time, each in
// a single storage transaction; queries read under a shared lock and never
// observe a half-applied command. Events are published only after commit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"harvestcert/internal/certification/metrics"
	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/ports"
	"harvestcert/internal/certification/store"
	"harvestcert/internal/facility"
	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/platform/sentinel"
	"harvestcert/pkg/requestcontext"
)

const tracerName = "harvestcert/internal/certification/service"

// Service is the certification registry.
type Service struct {
	mu sync.RWMutex

	kv             kv.Store
	facilities     ports.FacilityRegistry
	publisher      ports.EventPublisher
	outbox         ports.Outbox
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	enforceDevices bool
}

// Option configures a Service.
type Option func(*Service)

// WithFacilityRegistry replaces the default facility check
// (facility.NonEmptyCheck).
func WithFacilityRegistry(r ports.FacilityRegistry) Option {
	return func(s *Service) {
		s.facilities = r
	}
}

func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithOutbox stores events in the command transaction. The outbox must
// share the Service's storage backend.
func WithOutbox(o ports.Outbox) Option {
	return func(s *Service) {
		s.outbox = o
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithDeviceEnforcement makes VerifyTelemetry require that the device is
// authorized for the batch's facility.
func WithDeviceEnforcement(enabled bool) Option {
	return func(s *Service) {
		s.enforceDevices = enabled
	}
}

func New(store kv.Store, opts ...Option) *Service {
	s := &Service{
		kv:         store,
		facilities: facility.NonEmptyCheck{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Bootstrap persists owner as the registry owner unless one is already
// recorded, and returns the effective owner.
func (s *Service) Bootstrap(ctx context.Context, owner id.Identity) (id.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var effective id.Identity
	err := s.kv.Update(ctx, func(ctx context.Context, txn kv.Txn) error {
		w := store.NewWriter(txn)
		current, err := w.Owner(ctx)
		if err == nil {
			effective = current
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if owner.IsNil() {
			return dErrors.New(dErrors.CodeInvalidParameters, "registry owner is required")
		}
		effective = owner
		return w.PutOwner(ctx, owner)
	})
	if err != nil {
		return "", translate(err, "bootstrap registry")
	}
	if effective != owner {
		s.logger.WarnContext(ctx, "configured owner ignored, registry already owned",
			"configured_owner", owner,
			"owner", effective,
		)
	}
	return effective, nil
}

// mutation runs inside the command transaction and returns the events to
// emit. Returning commitThenFail(err) commits the writes and reports err.
type mutation func(ctx context.Context, w store.Writer) ([]models.Event, error)

// precheck runs under the write lock before the transaction opens. Calls to
// collaborators that may read the same store (the facility directory) go here.
type precheck func(ctx context.Context, r store.Reader) error

func (s *Service) apply(ctx context.Context, command string, attrs []attribute.KeyValue, pre precheck, fn mutation) error {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "certification."+command, trace.WithAttributes(attrs...))
	defer span.End()

	s.mu.Lock()
	events, err := s.commit(ctx, command, pre, fn)
	s.mu.Unlock()

	s.metrics.ObserveCommand(command, outcome(err), start)
	if len(events) > 0 {
		s.publish(ctx, events)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		s.logFailure(ctx, command, err)
		return err
	}
	return nil
}

func (s *Service) commit(ctx context.Context, command string, pre precheck, fn mutation) ([]models.Event, error) {
	if pre != nil {
		if err := pre(ctx, store.NewReader(s.kv)); err != nil {
			return nil, translate(err, command)
		}
	}

	var (
		events   []models.Event
		reported error
	)
	err := s.kv.Update(ctx, func(txCtx context.Context, txn kv.Txn) error {
		events, reported = nil, nil
		evs, err := fn(txCtx, store.NewWriter(txn))
		var deferred *failAfterCommit
		if errors.As(err, &deferred) {
			reported = deferred.err
		} else if err != nil {
			return err
		}
		requestID := requestcontext.RequestID(txCtx)
		for i := range evs {
			evs[i].RequestID = requestID
		}
		if s.outbox != nil && len(evs) > 0 {
			if err := s.outbox.Append(txCtx, evs); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "append events to outbox")
			}
		}
		events = evs
		return nil
	})
	if err != nil {
		return nil, translate(err, command)
	}
	return events, reported
}

func (s *Service) publish(ctx context.Context, events []models.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.metrics.IncrementPublishFailure()
		s.logger.ErrorContext(ctx, "failed to publish registry events",
			"request_id", requestcontext.RequestID(ctx),
			"events", len(events),
			"error", err,
		)
	}
}

func (s *Service) logFailure(ctx context.Context, command string, err error) {
	level := slog.LevelWarn
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeRegistryError) {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "registry command failed",
		"command", command,
		"caller", requestcontext.Caller(ctx),
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}

func (s *Service) view(ctx context.Context, query string, attrs []attribute.KeyValue, fn func(ctx context.Context, r store.Reader) error) error {
	ctx, span := s.tracer.Start(ctx, "certification."+query, trace.WithAttributes(attrs...))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := fn(ctx, store.NewReader(s.kv)); err != nil {
		err = translate(err, query)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return err
	}
	return nil
}

func batchAttr(b id.BatchID) attribute.KeyValue {
	return attribute.String("harvest.batch_id", string(b))
}

// Authorization checks, evaluated against the transaction's view.

func requireCertifier(ctx context.Context, r store.Reader) (id.Identity, error) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	ok, err := r.IsCertifier(ctx, caller)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", dErrors.Newf(dErrors.CodeUnauthorized, "%s is not an authorized certifier", caller)
	}
	return caller, nil
}

func requireOwner(ctx context.Context, r store.Reader) (id.Identity, error) {
	caller := requestcontext.Caller(ctx)
	owner, err := isOwner(ctx, r, caller)
	if err != nil {
		return "", err
	}
	if !owner {
		return "", dErrors.New(dErrors.CodeUnauthorized, "only the registry owner may perform this operation")
	}
	return caller, nil
}

func requireOwnerOrCertifier(ctx context.Context, r store.Reader) (id.Identity, error) {
	caller := requestcontext.Caller(ctx)
	owner, err := isOwner(ctx, r, caller)
	if err != nil {
		return "", err
	}
	if owner {
		return caller, nil
	}
	return requireCertifier(ctx, r)
}

func isOwner(ctx context.Context, r store.Reader, caller id.Identity) (bool, error) {
	if caller.IsNil() {
		return false, nil
	}
	owner, err := r.Owner(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == caller, nil
}

func loadCertificate(ctx context.Context, r store.Reader, batch id.BatchID) (*models.Certificate, error) {
	c, err := r.Certificate(ctx, batch)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeBatchNotFound, "batch %s not found", batch)
	}
	return c, err
}
