package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
// It is intentionally simple: the game core only ever hands raw payloads and
// routing metadata to the transport, never transport-specific objects.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g., "game.actions").
	Topic string
	// ConnectionID identifies the client connection that initiated the message,
	// when there is one.
	ConnectionID string
	// Payload contains the raw message data (JSON).
	Payload []byte
	// Metadata can carry arbitrary key-value pairs for context (timestamps, session IDs).
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the Pub/Sub system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the Pub/Sub system.
type Subscriber interface {
	// Subscribe starts listening to the given topic, processing messages with
	// the handler. Messages on a single topic are delivered to the handler one
	// at a time, in arrival order; the action pipeline relies on this for its
	// run-to-completion scheduling.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
