package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/pubsub"
)

type mockPublisher struct {
	mu       sync.Mutex
	messages []pubsub.Message
}

func (m *mockPublisher) Publish(_ context.Context, msg pubsub.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) byTopic(topic string) []pubsub.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pubsub.Message
	for _, msg := range m.messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

type actionResult struct {
	Action  string         `json:"action"`
	Success bool           `json:"success"`
	Reason  string         `json:"reason"`
	Data    map[string]any `json:"data"`
}

func decodeResult(t *testing.T, msg pubsub.Message) actionResult {
	t.Helper()
	var r actionResult
	require.NoError(t, json.Unmarshal(msg.Payload, &r))
	return r
}

func actionMessage(connID, event string, payload string) pubsub.Message {
	return pubsub.Message{
		Topic:        game.TopicActions.Name(),
		ConnectionID: connID,
		Payload:      []byte(payload),
		Metadata:     map[string]string{"event": event},
	}
}

func newRoutedSession(t *testing.T) (*Subscriber, *Manager, *mockPublisher, string) {
	t.Helper()
	m := newTestManager(t)
	publisher := &mockPublisher{}
	sub := NewSubscriber(m, publisher, nil)

	id, err := m.Create("cooperative", 2)
	require.NoError(t, err)
	require.NoError(t, m.Join(id, "c1"))
	require.NoError(t, m.Join(id, "c2"))
	return sub, m, publisher, id
}

func TestSubscriber_RoutesActionToSessionProcessor(t *testing.T) {
	sub, _, publisher, _ := newRoutedSession(t)
	ctx := context.Background()

	err := sub.handle(ctx, actionMessage("c1", "maze:place",
		`{"shape":"single","positions":[{"x":3,"z":3}]}`))
	require.NoError(t, err)

	results := publisher.byTopic(game.TopicResults.Name())
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ConnectionID)
	assert.Equal(t, "maze:place", results[0].Metadata["event"],
		"result envelope echoes the submitted action event")

	r := decodeResult(t, results[0])
	assert.True(t, r.Success)
	assert.Equal(t, "maze:place", r.Action)
}

func TestSubscriber_BroadcastsPathsToAllMembers(t *testing.T) {
	sub, _, publisher, _ := newRoutedSession(t)
	ctx := context.Background()

	err := sub.handle(ctx, actionMessage("c1", "maze:place",
		`{"shape":"single","positions":[{"x":3,"z":3}]}`))
	require.NoError(t, err)

	updates := publisher.byTopic(game.TopicPathsUpdated.Name())
	require.Len(t, updates, 2)
	targets := []string{updates[0].ConnectionID, updates[1].ConnectionID}
	assert.ElementsMatch(t, []string{"c1", "c2"}, targets)

	for _, update := range updates {
		assert.Equal(t, "game:paths_updated", update.Metadata["event"])

		var payload struct {
			Paths     map[string]any `json:"paths"`
			Timestamp string         `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(update.Payload, &payload))
		assert.NotEmpty(t, payload.Paths)
		_, err := time.Parse(time.RFC3339Nano, payload.Timestamp)
		assert.NoError(t, err, "timestamp is RFC3339")
	}
}

func TestSubscriber_FailedActionGetsNoBroadcast(t *testing.T) {
	sub, _, publisher, _ := newRoutedSession(t)
	ctx := context.Background()

	// Tower placement is a defense-phase action; during building it fails.
	err := sub.handle(ctx, actionMessage("c1", "tower:place",
		`{"type":"cannon","position":{"x":3,"z":3}}`))
	require.NoError(t, err)

	results := publisher.byTopic(game.TopicResults.Name())
	require.Len(t, results, 1)
	r := decodeResult(t, results[0])
	assert.False(t, r.Success)
	assert.Equal(t, string(game.ReasonWrongPhase), r.Reason)

	assert.Empty(t, publisher.byTopic(game.TopicPathsUpdated.Name()))
}

func TestSubscriber_UnknownEventRejected(t *testing.T) {
	sub, _, publisher, _ := newRoutedSession(t)

	err := sub.handle(context.Background(), actionMessage("c1", "tower:paint", `{}`))
	require.NoError(t, err)

	results := publisher.byTopic(game.TopicResults.Name())
	require.Len(t, results, 1)
	r := decodeResult(t, results[0])
	assert.False(t, r.Success)
	assert.Equal(t, string(game.ReasonInvalidAction), r.Reason)
}

func TestSubscriber_ConnectionWithoutSessionRejected(t *testing.T) {
	m := newTestManager(t)
	publisher := &mockPublisher{}
	sub := NewSubscriber(m, publisher, nil)

	err := sub.handle(context.Background(), actionMessage("stranger", "game:ready", `{"ready":true}`))
	require.NoError(t, err)

	results := publisher.byTopic(game.TopicResults.Name())
	require.Len(t, results, 1)
	r := decodeResult(t, results[0])
	assert.False(t, r.Success)
	assert.Equal(t, string(game.ReasonPlayerNotFound), r.Reason)
}
