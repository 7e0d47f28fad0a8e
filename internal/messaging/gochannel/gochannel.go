// Package gochannel is an in-process messaging.Broker built on Watermill's
// Go channel Pub/Sub. Every Consume call is its own subscriber; group ids
// are ignored.
package gochannel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

// KeyMetadata is the message metadata field carrying the partition key.
const KeyMetadata = "key"

type channelBroker struct {
	pubSub *gochannel.GoChannel
}

// NewBroker returns a broker that keeps published messages in memory so
// subscribers joining later still receive them.
func NewBroker(logger *slog.Logger) messaging.Broker {
	return &channelBroker{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{Persistent: true},
			watermill.NewSlogLogger(logger),
		),
	}
}

func (b *channelBroker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(KeyMetadata, key)
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish message to %s: %w", topic, err)
	}
	return nil
}

func (b *channelBroker) Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error) {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		slog.Error("Failed to subscribe", "topic", topic, "err", err)
		return
	}

	for msg := range messages {
		if err := messaging.Handle(ctx, topic, msg.Payload, handler); err != nil {
			msg.Nack()
			break
		}
		msg.Ack()
	}
	slog.Info("Consumer shutting down", "topic", topic)
}

func (b *channelBroker) Close() error {
	return b.pubSub.Close()
}
