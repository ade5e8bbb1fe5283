// Package kafka publishes registry events to a Kafka topic with franz-go.
//
// Records are keyed by batch id so every event of a batch lands on the same
// partition and keeps its order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"harvestcert/internal/certification/models"
)

const (
	HeaderEventType = "event_type"
	HeaderRequestID = "request_id"
)

type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*config)

type config struct {
	clientID     string
	produceWait  time.Duration
	logger       *slog.Logger
	extraOptions []kgo.Opt
}

func WithClientID(id string) Option {
	return func(c *config) {
		c.clientID = id
	}
}

// WithProduceTimeout bounds how long a produce request may wait for acks.
func WithProduceTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.produceWait = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithClientOptions passes raw franz-go options through (TLS, SASL).
func WithClientOptions(opts ...kgo.Opt) Option {
	return func(c *config) {
		c.extraOptions = append(c.extraOptions, opts...)
	}
}

// New connects a producer to brokers. Records are acked by all in-sync
// replicas and produced idempotently.
func New(brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	cfg := config{
		clientID:    "harvestcert",
		produceWait: 10 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	kopts := append([]kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(cfg.clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(cfg.produceWait),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	}, cfg.extraOptions...)

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: cfg.logger}, nil
}

func (p *Publisher) Topic() string {
	return p.topic
}

// Publish produces events synchronously, in order.
func (p *Publisher) Publish(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		rec, err := Record(p.topic, e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d events to %s: %w", len(records), p.topic, err)
	}
	return nil
}

// Record encodes one event as a Kafka record.
func Record(topic string, e models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	rec := &kgo.Record{
		Topic: topic,
		Key:   []byte(e.BatchID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderEventType, Value: []byte(e.Type)},
		},
		Timestamp: e.OccurredAt,
	}
	if e.RequestID != "" {
		rec.Headers = append(rec.Headers, kgo.RecordHeader{Key: HeaderRequestID, Value: []byte(e.RequestID)})
	}
	return rec, nil
}

// Decode parses a record produced by Publish.
func Decode(rec *kgo.Record) (models.Event, error) {
	var e models.Event
	if err := json.Unmarshal(rec.Value, &e); err != nil {
		return models.Event{}, fmt.Errorf("decode event at offset %d: %w", rec.Offset, err)
	}
	return e, nil
}

// EnsureTopic creates the topic when it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(p.client)
	resp, err := admin.CreateTopic(ctx, partitions, replicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	if resp.Err != nil {
		if errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return nil
		}
		return fmt.Errorf("create topic %s: %w", p.topic, resp.Err)
	}
	p.logger.InfoContext(ctx, "created kafka topic",
		"topic", p.topic,
		"partitions", partitions,
		"replication_factor", replicationFactor,
	)
	return nil
}

// Ping checks broker connectivity.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Publisher) Close() {
	p.client.Close()
}
