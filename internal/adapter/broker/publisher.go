package broker

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

const (
	headerEventID   = "event-id"
	headerEventType = "event-type"
)

// Publisher delivers order events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order events to a Kafka topic keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates publisher with hash balancing so events of one order keep their order.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes a single event; consumers deduplicate by the event-id header.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(event.EventID)},
			{Key: headerEventType, Value: []byte(event.Type)},
		},
		Time: event.CreatedAt.UTC(),
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the application log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates log-backed publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	p.logger.InfoContext(ctx, "order event",
		slog.String("event_id", event.EventID),
		slog.String("type", string(event.Type)),
		slog.Int64("order_id", event.OrderID),
		slog.String("payload", string(event.Payload)))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
