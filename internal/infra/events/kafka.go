// Package events announces completed sync runs to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yanqian/healthsync/internal/domain/healthsync"
)

// DefaultTopic receives one message per successful sync run.
const DefaultTopic = "wearables.sync.completed"

// EventType is stamped on every message header.
const EventType = "wearables.sync.completed.v1"

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes sync reports to a Kafka topic keyed by connection.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

// NewKafkaPublisher builds a synchronous writer that waits for all replicas.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, logger), nil
}

func newKafkaPublisher(writer messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		logger: logger.With("component", "events.kafka"),
		now:    time.Now,
	}
}

// PublishSyncCompleted implements healthsync.EventPublisher.
func (p *KafkaPublisher) PublishSyncCompleted(ctx context.Context, report healthsync.SyncReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode sync report: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(healthsync.LockKey(report.UserID, report.IntegrationID)),
		Value: payload,
		Time:  p.now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventType)},
			{Key: "run_id", Value: []byte(report.RunID.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sync report to %s: %w", p.topic, err)
	}
	p.logger.Debug("sync report published", "topic", p.topic, "runId", report.RunID)
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ healthsync.EventPublisher = (*KafkaPublisher)(nil)
