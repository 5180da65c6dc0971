// Package kafka publishes completed-operation events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

// DefaultTopic is where operation events land unless overridden.
const DefaultTopic = "wallet.operations"

// Publisher implements wallet.Publisher backed by a kafka writer.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher for the given brokers and topic.
// An empty topic selects DefaultTopic.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

var _ wallet.Publisher = (*Publisher)(nil)

// Publish writes one event, keyed by account so per-account ordering is
// preserved within a partition.
func (p *Publisher) Publish(ctx context.Context, event wallet.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
