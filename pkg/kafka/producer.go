// Package kafka publishes JSON events to Kafka through segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Event is one message. Key selects the partition, Type is carried in the
// event-type header and Value is encoded as JSON.
type Event struct {
	Key   string
	Type  string
	Value any
}

// Producer writes events to a single topic, one synchronous write per
// event.
type Producer struct {
	writer  *kafka.Writer
	topic   string
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a Producer for topic. No connection is made until the
// first Publish or Ping.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			MaxAttempts:            3,
			WriteTimeout:           10 * time.Second,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic:   topic,
		brokers: cfg.Brokers,
		logger:  logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// Publish encodes ev and blocks until the brokers acknowledge it.
func (p *Producer) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev.Value)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(ev.Type)},
		},
		Time: time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s to %s: %w", ev.Type, p.topic, err)
	}
	p.logger.Debug("event published", "type", ev.Type, "key", ev.Key, "bytes", len(value))
	return nil
}

// Ping connects to the first reachable broker and reads cluster metadata.
func (p *Producer) Ping(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	var errs []error
	for _, addr := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = conn.Brokers()
		conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("no kafka broker reachable: %w", errors.Join(errs...))
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
