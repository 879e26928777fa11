package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jonathan/recipe-importer/internal/observability"
	"github.com/jonathan/recipe-importer/internal/types"
)

// KafkaConfig holds the broker settings for external event delivery.
type KafkaConfig struct {
	Broker  string `json:"broker"`
	Topic   string `json:"topic"`
	GroupID string `json:"group_id"`
}

// kafkaWriter is the subset of kafka.Writer the producer uses, split out so
// tests can substitute a fake.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes status events to a Kafka topic, keyed by import ID so
// events for one import stay ordered within a partition.
type Producer struct {
	writer kafkaWriter
}

// NewProducer returns a Producer for the configured broker and topic.
func NewProducer(cfg KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Broker),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish sends one status event.
func (p *Producer) Publish(ctx context.Context, event types.StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ImportID.String()),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to write status event to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// kafkaReader is the subset of kafka.Reader the consumer uses.
type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads status events back off the topic and hands them to a
// callback. It commits offsets only after the callback succeeds.
type Consumer struct {
	reader kafkaReader
	logger *observability.Logger
}

// NewConsumer returns a Consumer in the configured group. Offsets are
// committed manually after each handled event.
func NewConsumer(cfg KafkaConfig, logger *observability.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.Broker},
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			CommitInterval: 0,
			MinBytes:       10e3,
			MaxBytes:       10e6,
		}),
		logger: logger,
	}
}

// Run consumes events until ctx is cancelled, invoking handle for each.
// Handler errors skip the commit so the event is redelivered.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, types.StatusEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warnf("failed to read status event: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var event types.StatusEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Warnf("dropping malformed status event at offset %d: %v", msg.Offset, err)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("failed to commit offset: %w", err)
			}
			continue
		}

		if err := handle(ctx, event); err != nil {
			c.logger.Warnf("handler failed for import %s event %s: %v", event.ImportID, event.Status, err)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to commit offset: %w", err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
