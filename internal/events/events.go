// Package events publishes ride lifecycle transitions to Kafka. Consumers
// (see cmd/consumer) project them into the Redis status cache that the
// dashboards poll.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-hailing/internal/models"
)

// RideEvent is the wire record emitted once per successful transition.
type RideEvent struct {
	RideID      string            `json:"ride_id"`
	RiderID     string            `json:"rider_id"`
	DriverID    string            `json:"driver_id,omitempty"`
	Status      models.RideStatus `json:"status"`
	CancelledBy models.Role       `json:"cancelled_by,omitempty"`
	Fare        int64             `json:"fare"`
	Amount      int64             `json:"amount,omitempty"`
	PaymentMode string            `json:"payment_mode,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Producer{writer: w}
}

func (p *Producer) Publish(ctx context.Context, ev RideEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(ev)
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.RideID), Value: b})
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
