package matchmaking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinedd777/towerdef/internal/pubsub"
)

func requestMessage(connID, event string, payload []byte) pubsub.Message {
	return pubsub.Message{
		Topic:        TopicRequests.Name(),
		ConnectionID: connID,
		Payload:      payload,
		Metadata:     map[string]string{"event": event},
	}
}

func TestSubscriber_QuickMatchEnqueues(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sub := NewSubscriber(svc, nil)

	payload := []byte(`{"name":"alice","rating":1200,"preferences":{"maxPlayers":2,"skillLevel":"advanced","gameMode":"cooperative","region":"eu"}}`)
	err := sub.handle(context.Background(), requestMessage("c1", EventQuickMatch, payload))
	require.NoError(t, err)

	assert.Equal(t, 1, svc.QueueLen())
	svc.mu.Lock()
	defer svc.mu.Unlock()
	req := svc.byConn["c1"]
	require.NotNil(t, req)
	assert.Equal(t, "alice", req.Profile.Name)
	assert.Equal(t, SkillAdvanced, req.Preferences.SkillLevel)
}

func TestSubscriber_MalformedPayloadIsDropped(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sub := NewSubscriber(svc, nil)

	err := sub.handle(context.Background(), requestMessage("c1", EventQuickMatch, []byte("{not json")))
	require.NoError(t, err, "malformed input must not poison the subscription")
	assert.Equal(t, 0, svc.QueueLen())
}

func TestSubscriber_CancelRemovesRequest(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sub := NewSubscriber(svc, nil)
	ctx := context.Background()

	_, _, err := svc.Enqueue(ctx, "c1", Profile{}, coopPrefs(SkillBeginner))
	require.NoError(t, err)

	require.NoError(t, sub.handle(ctx, requestMessage("c1", EventCancel, nil)))
	assert.Equal(t, 0, svc.QueueLen())
}

func TestSubscriber_UnknownEventIsIgnored(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	sub := NewSubscriber(svc, nil)

	err := sub.handle(context.Background(), requestMessage("c1", "teleport", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, svc.QueueLen())
}
