package websocket

import (
	"context"
	"encoding/json"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/pubsub"
)

// Envelope is the wire frame for every client-facing message, in both
// directions: an event name selecting the operation and its JSON payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-facing event names owned by the bridge itself.
const (
	EventConnectionEstablished = "connection:established"
	EventError                 = "error"
)

// topicFor maps a client event name onto the inbound bus topic that owns it.
// An empty result means the event is unroutable.
func topicFor(event string) string {
	if _, ok := game.ParseActionType(event); ok {
		return game.TopicActions.Name()
	}
	switch event {
	case matchmaking.EventQuickMatch, matchmaking.EventCancel:
		return matchmaking.TopicRequests.Name()
	}
	return ""
}

// routeInbound parses one client frame and publishes it onto the bus. Bad
// frames and unroutable events get an error envelope back and never reach
// the bus.
func (b *Bridge) routeInbound(c *Client, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		b.logger.Warn("malformed client frame", "connection_id", c.ID, "error", err)
		c.sendError("malformed_envelope")
		return
	}

	topic := topicFor(env.Event)
	if topic == "" {
		b.logger.Warn("unroutable client event", "connection_id", c.ID, "event", env.Event)
		c.sendError("unknown_event")
		return
	}

	msg := pubsub.Message{
		Topic:        topic,
		ConnectionID: c.ID,
		Payload:      env.Payload,
		Metadata:     map[string]string{"event": env.Event},
	}
	if err := b.publisher.Publish(context.Background(), msg); err != nil {
		b.logger.Error("publishing client event", "connection_id", c.ID, "event", env.Event, "error", err)
		c.sendError("internal_error")
	}
}

// sendError pushes an error envelope to the client, dropping it if the send
// buffer is full.
func (c *Client) sendError(reason string) {
	data, err := json.Marshal(Envelope{
		Event:   EventError,
		Payload: mustRaw(map[string]string{"reason": reason}),
	})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// DeliverTopics subscribes the bridge to outbound topics and forwards each
// message to its target connection, wrapped in an envelope named after the
// event in the message metadata.
func (b *Bridge) DeliverTopics(ctx context.Context, subscriber pubsub.Subscriber, topics ...string) error {
	for _, topic := range topics {
		if err := subscriber.Subscribe(ctx, topic, b.deliver); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) deliver(_ context.Context, msg pubsub.Message) error {
	event := msg.Metadata["event"]
	if event == "" {
		event = msg.Topic
	}

	data, err := json.Marshal(Envelope{Event: event, Payload: json.RawMessage(msg.Payload)})
	if err != nil {
		b.logger.Error("marshaling outbound envelope", "topic", msg.Topic, "error", err)
		return nil
	}

	if msg.ConnectionID == "" {
		b.Broadcast(data)
		return nil
	}
	b.SendDirect(msg.ConnectionID, data)
	return nil
}
