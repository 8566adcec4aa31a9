package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"detailing/internal/events"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("kafka producer is closed")

// messageWriter is the part of *kafka.Writer used for publishing.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka streams events to a topic for downstream consumers (CRM, analytics).
type Kafka struct {
	writer messageWriter
	closed bool
	mu     sync.RWMutex
	logger *zerolog.Logger
}

// NewKafkaWriter creates a writer that keys messages by booking for ordering.
func NewKafkaWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
	}, nil
}

func NewKafka(writer messageWriter, logger *zerolog.Logger) *Kafka {
	return &Kafka{writer: writer, logger: logger}
}

func (k *Kafka) Name() string { return "kafka" }

func (k *Kafka) Notify(ctx context.Context, event events.Event) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return Permanent(ErrProducerClosed)
	}

	value, err := event.Payload()
	if err != nil {
		return Permanent(fmt.Errorf("encode event: %w", err))
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", event.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	return k.writer.Close()
}
