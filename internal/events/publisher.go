package events

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/jonit-dev/pixelperfect/internal/model"
)

// DefaultTopic is the Kafka topic subscription events land on.
const DefaultTopic = "billing.subscription-events"

// writeTimeout bounds one publish so a dead broker cannot stall a webhook.
const writeTimeout = 5 * time.Second

// SubscriptionEvent is the message body published on lifecycle changes.
type SubscriptionEvent struct {
	// EventType names the change ("subscription.updated",
	// "subscription.expired").
	EventType string `json:"event_type"`

	// StripeEventID is the originating webhook event, empty for changes made
	// by reconciliation jobs.
	StripeEventID string `json:"stripe_event_id,omitempty"`

	// Subscription is the post-change state.
	Subscription *model.Subscription `json:"subscription"`

	// OccurredAt is when the change was applied locally.
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes subscription events.
type Publisher interface {
	// Publish sends one event. Implementations must be safe for concurrent
	// use.
	Publish(ctx context.Context, event SubscriptionEvent) error

	// Close releases the underlying connection.
	Close() error
}

// KafkaPublisher publishes events to a Kafka topic, keyed by Stripe
// subscription ID so one subscription's events stay ordered within a
// partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: writeTimeout,
			// The writer would otherwise fail until the topic exists, and
			// billing must not depend on a manual Kafka setup step.
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, event SubscriptionEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	var key []byte
	if event.Subscription != nil {
		key = []byte(event.Subscription.StripeSubscriptionID)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops all events. Used when no Kafka brokers are configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, SubscriptionEvent) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
