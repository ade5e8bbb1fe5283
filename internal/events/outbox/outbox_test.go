package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/service"
	"harvestcert/internal/events/outbox"
	"harvestcert/internal/events/sink"
	"harvestcert/internal/platform/kv/sqlkv"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/platform/circuit"
	"harvestcert/pkg/requestcontext"
)

type flakyPublisher struct {
	failures atomic.Int32
	inner    *sink.Recorder
}

func (f *flakyPublisher) Publish(ctx context.Context, events []models.Event) error {
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return errors.New("broker unavailable")
	}
	return f.inner.Publish(ctx, events)
}

type OutboxSuite struct {
	suite.Suite
	ctx    context.Context
	kv     *sqlkv.Store
	outbox *outbox.Store
	svc    *service.Service
}

func TestOutboxSuite(t *testing.T) {
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupTest() {
	s.ctx = context.Background()
	store, err := sqlkv.OpenSQLite(s.ctx, ":memory:")
	s.Require().NoError(err)
	s.kv = store

	ob, err := outbox.New(s.ctx, store.DB(), outbox.SQLite)
	s.Require().NoError(err)
	s.outbox = ob

	s.svc = service.New(store,
		service.WithOutbox(ob),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	_, err = s.svc.Bootstrap(s.ctx, "alice")
	s.Require().NoError(err)
}

func (s *OutboxSuite) TearDownTest() {
	s.Require().NoError(s.kv.Close())
}

func (s *OutboxSuite) as(who string) context.Context {
	ctx := requestcontext.WithCaller(s.ctx, id.Identity(who))
	return requestcontext.WithRequestID(ctx, "req-"+who)
}

func (s *OutboxSuite) register(batch string) {
	_, err := s.svc.RegisterHarvest(s.as("producer"), models.Registration{
		BatchID: id.BatchID(batch), FacilityID: "FAC001", Weight: 5000, Density: 2500,
	})
	s.Require().NoError(err)
}

func (s *OutboxSuite) TestCommittedCommandsAreStoredInOrder() {
	s.register("BATCH001")
	s.Require().NoError(s.svc.AddCertifier(s.as("alice"), "bob"))
	_, err := s.svc.VerifyTelemetry(s.as("bob"), service.TelemetryReadings{
		BatchID: "BATCH001", DeviceID: "DEV1", AvgPH: 700, AvgTemperature: 2500, AvgLight: 4500, FinalDensity: 2600,
	})
	s.Require().NoError(err)

	entries, err := s.outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(models.EventHarvestRegistered, entries[0].Event.Type)
	s.Equal("req-producer", entries[0].Event.RequestID)
	s.Equal(models.EventTelemetryVerified, entries[1].Event.Type)
	s.Less(entries[0].Seq, entries[1].Seq)
}

func (s *OutboxSuite) TestFailedCommandsLeaveNoEntries() {
	s.register("BATCH001")
	_, err := s.svc.RegisterHarvest(s.as("producer"), models.Registration{
		BatchID: "BATCH001", FacilityID: "FAC001", Weight: 1,
	})
	s.Require().Error(err)

	backlog, err := s.outbox.Backlog(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, backlog)
}

func (s *OutboxSuite) TestRejectionIsStored() {
	s.register("BATCH001")
	s.Require().NoError(s.svc.AddCertifier(s.as("alice"), "bob"))
	_, err := s.svc.CertifyHarvest(s.as("bob"), "BATCH001", 80)
	s.Require().Error(err, "untested batch cannot be certified")

	s.Require().NoError(s.svc.AuthorizeLab(s.as("alice"), "Spirulina Labs"))
	_, err = s.svc.VerifyTelemetry(s.as("bob"), service.TelemetryReadings{
		BatchID: "BATCH001", DeviceID: "DEV1", AvgPH: 700, AvgTemperature: 2500, AvgLight: 4500, FinalDensity: 2600,
	})
	s.Require().NoError(err)
	_, err = s.svc.UpdateNutrition(s.as("bob"), service.LabReport{
		BatchID: "BATCH001", LabName: "Spirulina Labs", ReportID: "R1",
		Profile: models.NutritionalProfile{Protein: 5000, Phycocyanin: 1600},
	})
	s.Require().NoError(err)
	_, err = s.svc.CertifyHarvest(s.as("bob"), "BATCH001", 80)
	s.Require().Error(err)

	entries, err := s.outbox.Pending(s.ctx, 10)
	s.Require().NoError(err)
	last := entries[len(entries)-1].Event
	s.Equal(models.EventCertificationStatusChanged, last.Type)
	s.Equal(models.StatusRejected, last.Status)
}

func (s *OutboxSuite) TestRelayDeliversAndFlags() {
	s.register("BATCH001")
	s.register("BATCH002")
	s.register("BATCH003")

	rec := sink.NewRecorder()
	reg := prometheus.NewRegistry()
	m := outbox.NewMetrics(reg)
	relay := outbox.NewRelay(s.outbox, rec, outbox.WithBatchSize(2), outbox.WithRelayMetrics(m),
		outbox.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	n, err := relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
	s.InDelta(1, testutil.ToFloat64(m.Backlog), 0)

	n, err = relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.Len(rec.Events(), 3)
	s.Equal("BATCH001", string(rec.Events()[0].BatchID))
	s.Equal("BATCH003", string(rec.Events()[2].BatchID))
	s.InDelta(3, testutil.ToFloat64(m.Relayed), 0)
	s.InDelta(0, testutil.ToFloat64(m.Backlog), 0)
}

func (s *OutboxSuite) TestRelayRetriesAfterPublisherFailure() {
	s.register("BATCH001")

	pub := &flakyPublisher{inner: sink.NewRecorder()}
	pub.failures.Store(2)
	reg := prometheus.NewRegistry()
	m := outbox.NewMetrics(reg)
	breaker := circuit.New("test-relay", circuit.WithFailureThreshold(2))
	relay := outbox.NewRelay(s.outbox, pub, outbox.WithBreaker(breaker), outbox.WithRelayMetrics(m),
		outbox.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := relay.RelayOnce(s.ctx)
	s.Require().Error(err)
	_, err = relay.RelayOnce(s.ctx)
	s.Require().Error(err)
	s.True(breaker.IsOpen())
	s.InDelta(1, testutil.ToFloat64(m.BreakerState), 0)
	s.InDelta(2, testutil.ToFloat64(m.Failures), 0)

	n, err := relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.False(breaker.IsOpen())
	s.InDelta(0, testutil.ToFloat64(m.BreakerState), 0)
	s.Len(pub.inner.Events(), 1, "entry is delivered once the publisher recovers")
}

func (s *OutboxSuite) TestRunStopsOnCancel() {
	s.register("BATCH001")
	rec := sink.NewRecorder()
	relay := outbox.NewRelay(s.outbox, rec, outbox.WithInterval(10*time.Millisecond),
		outbox.WithRelayLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	s.Eventually(func() bool { return len(rec.Events()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	s.NoError(<-done)
}
