package messaging

import "context"

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	// PublishEvent JSON-encodes event and publishes it on topic, keyed by key.
	// A json.RawMessage is published as is.
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
type Subscriber interface {
	// Consume blocks, passing every message on topic to handler until ctx is done.
	// A message is acknowledged only after handler succeeds or fails with
	// ErrPermanent; other errors are retried, so delivery is at least once.
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

// Broker is a Publisher and Subscriber holding connections that must be released.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}
