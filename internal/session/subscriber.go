package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/pubsub"
)

// Subscriber is the action router: it pulls client actions off the bus,
// resolves the submitting connection to its session, runs the action through
// that session's processor, and publishes the outcome.
//
// Subscriptions deliver one message at a time per topic, so actions are
// processed run-to-completion in arrival order.
type Subscriber struct {
	manager   *Manager
	publisher pubsub.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewSubscriber creates the action router.
func NewSubscriber(manager *Manager, publisher pubsub.Publisher, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default().With("service", "session")
	}
	return &Subscriber{manager: manager, publisher: publisher, logger: logger, now: time.Now}
}

// Start subscribes to the action topic. Message handling continues until ctx
// is cancelled.
func (s *Subscriber) Start(ctx context.Context, subscriber pubsub.Subscriber) error {
	return subscriber.Subscribe(ctx, game.TopicActions.Name(), s.handle)
}

func (s *Subscriber) handle(ctx context.Context, msg pubsub.Message) error {
	event := msg.Metadata["event"]

	actionType, known := game.ParseActionType(event)
	if !known {
		s.reply(ctx, msg.ConnectionID, event, game.Failure(game.ReasonInvalidAction))
		return nil
	}

	sess, ok := s.manager.SessionFor(msg.ConnectionID)
	if !ok {
		s.reply(ctx, msg.ConnectionID, event, game.Failure(game.ReasonPlayerNotFound))
		return nil
	}

	result := sess.Processor().Process(msg.ConnectionID, game.Action{
		Type:    actionType,
		Payload: json.RawMessage(msg.Payload),
	})
	s.reply(ctx, msg.ConnectionID, event, result)

	if result.Success {
		if paths, changed := result.Data["paths"]; changed {
			s.broadcastPaths(ctx, sess.ID, paths, s.now().UTC())
		}
	}
	return nil
}

// reply sends the uniform action result back to the submitting connection.
// The envelope event echoes the submitted action, so clients correlate each
// result with what they sent.
func (s *Subscriber) reply(ctx context.Context, connectionID, action string, result game.Result) {
	payload, err := json.Marshal(struct {
		Action string `json:"action"`
		game.Result
	}{Action: action, Result: result})
	if err != nil {
		s.logger.Error("marshaling action result", "action", action, "error", err)
		return
	}

	msg := pubsub.Message{
		Topic:        game.TopicResults.Name(),
		ConnectionID: connectionID,
		Payload:      payload,
		Metadata:     map[string]string{"event": action},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publishing action result", "connection_id", connectionID, "error", err)
	}
}

// broadcastPaths tells every session member about re-derived enemy routes.
func (s *Subscriber) broadcastPaths(ctx context.Context, sessionID string, paths any, at time.Time) {
	payload, err := json.Marshal(map[string]any{
		"paths":     paths,
		"timestamp": at.Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.Error("marshaling path update", "session_id", sessionID, "error", err)
		return
	}

	for _, member := range s.manager.Members(sessionID) {
		msg := pubsub.Message{
			Topic:        game.TopicPathsUpdated.Name(),
			ConnectionID: member,
			Payload:      payload,
			Metadata:     map[string]string{"event": game.EventPathsUpdated},
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			s.logger.Error("publishing path update", "connection_id", member, "error", err)
		}
	}
}
