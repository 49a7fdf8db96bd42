package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillBridge_RoundTrip(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Message
	err := bridge.Subscribe(ctx, "test.topic", func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		return nil
	})
	require.NoError(t, err)

	err = bridge.Publish(ctx, Message{
		Topic:        "test.topic",
		ConnectionID: "conn-1",
		Payload:      []byte(`{"hello":"world"}`),
		Metadata:     map[string]string{"event": "greeting"},
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	msg := received[0]
	assert.Equal(t, "test.topic", msg.Topic)
	assert.Equal(t, "conn-1", msg.ConnectionID)
	assert.JSONEq(t, `{"hello":"world"}`, string(msg.Payload))
	assert.Equal(t, "greeting", msg.Metadata["event"])
}

func TestWatermillBridge_PerTopicOrdering(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var order []string
	err := bridge.Subscribe(ctx, "test.ordered", func(_ context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, string(msg.Payload))
		return nil
	})
	require.NoError(t, err)

	for _, payload := range []string{"a", "b", "c", "d"} {
		require.NoError(t, bridge.Publish(ctx, Message{Topic: "test.ordered", Payload: []byte(payload)}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c", "d"}, order)
}
