//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/events/kafka"
	"harvestcert/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	brokers   []string
	publisher *kafka.Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetKafka(s.T()).Brokers

	p, err := kafka.New(s.brokers, "harvest-events-it")
	s.Require().NoError(err)
	s.publisher = p

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(p.EnsureTopic(ctx, 3, 1))
	s.Require().NoError(p.EnsureTopic(ctx, 3, 1), "second call tolerates an existing topic")
}

func (s *PublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *PublisherSuite) TestPublishedEventsAreConsumedInBatchOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()
	events := []models.Event{
		models.HarvestRegistered("BATCH-IT", "FAC001", 5000, now),
		models.TelemetryVerified("BATCH-IT", "DEV1", now),
		models.HarvestCertified("BATCH-IT", 85, "bob", now),
		models.CertificationStatusChanged("BATCH-IT", models.StatusCertified, now),
	}
	s.Require().NoError(s.publisher.Publish(ctx, events))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(s.publisher.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []models.EventType
	for len(got) < len(events) {
		fetches := consumer.PollFetches(ctx)
		require.Empty(s.T(), fetches.Errors())
		fetches.EachRecord(func(rec *kgo.Record) {
			e, err := kafka.Decode(rec)
			s.Require().NoError(err)
			if e.BatchID == "BATCH-IT" {
				got = append(got, e.Type)
			}
		})
	}
	s.Equal([]models.EventType{
		models.EventHarvestRegistered,
		models.EventTelemetryVerified,
		models.EventHarvestCertified,
		models.EventCertificationStatusChanged,
	}, got)
}
