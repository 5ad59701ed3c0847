// Package events publishes order lifecycle events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eato/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Event types.
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event describes a change to an order.
type Event struct {
	Type           string            `json:"type"`
	OrderID        string            `json:"orderId"`
	Email          string            `json:"email"`
	Status         model.OrderStatus `json:"status"`
	PreviousStatus model.OrderStatus `json:"previousStatus,omitempty"`
	TotalAmount    decimal.Decimal   `json:"totalAmount"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// OrderPlaced builds the event emitted after an order commits.
func OrderPlaced(o *model.Order) Event {
	return Event{
		Type:        TypeOrderPlaced,
		OrderID:     o.ID,
		Email:       o.Email,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  o.CreatedAt,
	}
}

// StatusChanged builds the event emitted after a status transition commits.
func StatusChanged(o *model.Order, previous model.OrderStatus) Event {
	return Event{
		Type:           TypeOrderStatusChanged,
		OrderID:        o.ID,
		Email:          o.Email,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalAmount:    o.TotalAmount,
		OccurredAt:     o.UpdatedAt,
	}
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by order id, so every
// event for one order lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	logger = logger.With().Str("component", "kafka-publisher").Logger()
	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("kafka publisher initialised")
	return &KafkaPublisher{writer: w, logger: logger}
}

// Publish encodes e as JSON and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.OrderID),
		Value: payload,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().Err(err).Str("order_id", e.OrderID).Str("type", e.Type).Msg("failed to publish event")
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}

	p.logger.Debug().Str("order_id", e.OrderID).Str("type", e.Type).Msg("event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
