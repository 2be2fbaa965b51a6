package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher forwards finished mutations to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, key string, evt Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, key string, evt Event) error { return nil }

func (NoopPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const publishBatchTimeout = 10 * time.Millisecond

type KafkaPublisher struct {
	writer messageWriter
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewPublisher returns a kafka publisher, or a no-op one when brokersCSV is empty.
func NewPublisher(brokersCSV, topic string) Publisher {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		// Publish runs on the commit path; do not wait for a batch to fill.
		BatchTimeout: publishBatchTimeout,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
