package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"harvestcert/internal/certification/handler"
	certmetrics "harvestcert/internal/certification/metrics"
	"harvestcert/internal/certification/ports"
	"harvestcert/internal/certification/service"
	"harvestcert/internal/events/kafka"
	"harvestcert/internal/events/outbox"
	"harvestcert/internal/events/sink"
	"harvestcert/internal/events/stream"
	"harvestcert/internal/facility"
	"harvestcert/internal/platform/config"
	"harvestcert/internal/platform/identity"
	"harvestcert/internal/platform/kv"
	"harvestcert/internal/platform/kv/rediskv"
	"harvestcert/internal/platform/kv/sqlkv"
	"harvestcert/internal/platform/metrics"
	"harvestcert/internal/platform/ratelimit"
	redisclient "harvestcert/internal/platform/redis"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/platform/httputil"
	"harvestcert/pkg/platform/middleware/auth"
	"harvestcert/pkg/platform/middleware/request"
	"harvestcert/pkg/platform/middleware/requesttime"
)

// app holds the wired server components.
type app struct {
	router http.Handler
	owner  id.Identity
	hub    *stream.Hub
	relay  *outbox.Relay

	redis   *redisclient.Client
	closers []func() error
	log     *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger) (a *app, err error) {
	a = &app{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	reg := metrics.NewRegistry()

	store, db, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The directory admin is the effective owner, which may predate cfg.
	a.owner, err = service.New(store, service.WithLogger(log)).Bootstrap(ctx, id.Identity(cfg.Registry.Owner))
	if err != nil {
		return nil, fmt.Errorf("bootstrap registry: %w", err)
	}

	var directory *facility.Directory
	var facilities ports.FacilityRegistry = facility.NonEmptyCheck{}
	if cfg.Registry.FacilityCheck == config.FacilityCheckDirectory {
		directory = facility.NewDirectory(store, facility.WithAdmin(a.owner), facility.WithLogger(log))
		facilities = directory
	}

	a.hub = stream.NewHub(stream.WithLogger(log))
	sinks := sink.Multi{sink.NewLogger(log), a.hub}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(certmetrics.New(reg)),
		service.WithFacilityRegistry(facilities),
		service.WithDeviceEnforcement(cfg.Registry.EnforceDevices),
	}

	if cfg.Kafka.Enabled() {
		producer, err := a.openKafka(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		if cfg.Outbox() {
			ob, relay, err := newOutbox(ctx, cfg, db, producer, reg, log)
			if err != nil {
				return nil, err
			}
			a.relay = relay
			opts = append(opts, service.WithOutbox(ob))
		} else {
			sinks = append(sinks, producer)
		}
	}
	opts = append(opts, service.WithPublisher(sinks))

	svc := service.New(store, opts...)
	tokens := identity.NewService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.AccessLog(log))
	if cfg.RateLimit.Enabled() {
		limiter, err := a.rateLimiter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r.Use(limiter.Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Owner(r.Context()); err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", reg.Handler())
	if cfg.Server.Websocket {
		r.Handle("/events/ws", a.hub)
	}

	hopts := []handler.Option{handler.WithAuth(auth.RequireCaller(tokens, log))}
	if directory != nil {
		hopts = append(hopts, handler.WithDirectory(directory))
	}
	handler.New(svc, log, hopts...).Register(r)

	a.router = r
	return a, nil
}

// openStore returns the registry store and, for SQL backends, its pool.
func (a *app) openStore(ctx context.Context, cfg config.Config) (kv.Store, *sql.DB, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		a.log.Warn("using in-memory store, state is lost on restart")
		return kv.NewMemory(), nil, nil
	case config.BackendSQLite:
		s, err := sqlkv.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, s.DB(), nil
	case config.BackendPostgres:
		s, err := sqlkv.OpenPostgres(ctx, cfg.Store.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, s.DB(), nil
	case config.BackendRedis:
		client, err := a.redisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return rediskv.New(client.Client, rediskv.WithPrefix(client.Prefix)), nil, nil
	default:
		return nil, nil, fmt.Errorf("store backend %q is not supported", cfg.Store.Backend)
	}
}

// redisClient connects once; the store and the rate limiter share it.
func (a *app) redisClient(ctx context.Context, cfg config.Redis) (*redisclient.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	client, err := redisclient.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *app) rateLimiter(ctx context.Context, cfg config.Config) (*ratelimit.Middleware, error) {
	var store ratelimit.Store = ratelimit.NewMemory()
	if cfg.Redis.URL != "" {
		client, err := a.redisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store = ratelimit.NewRedis(client.Client, client.Prefix)
	}
	return ratelimit.New(store, cfg.RateLimit.Requests, cfg.RateLimit.Window, ratelimit.WithLogger(a.log)), nil
}

func (a *app) openKafka(ctx context.Context, cfg config.Kafka) (*kafka.Publisher, error) {
	p, err := kafka.New(cfg.Brokers, cfg.Topic, kafka.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		p.Close()
		return nil
	})
	if err := p.EnsureTopic(ctx, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		return nil, err
	}
	return p, nil
}

func newOutbox(ctx context.Context, cfg config.Config, db *sql.DB, publisher ports.EventPublisher, reg *metrics.Registry, log *slog.Logger) (*outbox.Store, *outbox.Relay, error) {
	dialect := outbox.SQLite
	if cfg.Store.Backend == config.BackendPostgres {
		dialect = outbox.Postgres
	}
	store, err := outbox.New(ctx, db, dialect)
	if err != nil {
		return nil, nil, err
	}
	relay := outbox.NewRelay(store, publisher,
		outbox.WithInterval(cfg.Kafka.RelayInterval),
		outbox.WithRelayLogger(log),
		outbox.WithRelayMetrics(outbox.NewMetrics(reg)),
	)
	return store, relay, nil
}

// Close releases stores and clients in reverse order of opening.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown cleanup failed", "error", err)
	}
}
