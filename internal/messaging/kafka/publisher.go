// Package kafka forwards committed ticket events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/pioneer-isp/helpdesk/internal/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes ticket events keyed by ticket key so a ticket's events stay ordered within a partition.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewPublisher creates a publisher for topic on brokers.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, logger)
}

func newPublisher(writer messageWriter, logger *zap.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

// Register subscribes the publisher to every ticket event.
func (p *Publisher) Register(dispatcher events.Dispatcher) {
	events.SubscribeAll(dispatcher, p.Publish)
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.TicketKey),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	p.logger.Debug("ticket event published",
		zap.String("ticket_key", event.TicketKey),
		zap.String("event_type", string(event.Type)))
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
