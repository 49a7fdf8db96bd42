package matchmaking

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sinedd777/towerdef/internal/pubsub"
)

// Client-facing event names, in both directions, carried in message metadata
// by the websocket bridge. Inbound events select the operation; outbound
// events name the notification for the client.
const (
	EventQuickMatch = "matchmaking:quick_match"
	EventCancel     = "matchmaking:cancel"

	EventQueued    = "matchmaking:queued"
	EventJoined    = "matchmaking:joined"
	EventMatched   = "matchmaking:matched"
	EventCancelled = "matchmaking:cancelled"
	EventTimeout   = "matchmaking:timeout"
	EventError     = "matchmaking:error"
)

// quickMatchPayload is the wire shape of a quick-match request.
type quickMatchPayload struct {
	Name        string      `json:"name"`
	Rating      int         `json:"rating"`
	Preferences Preferences `json:"preferences"`
}

// Subscriber routes inbound matchmaking requests from the bus to the service.
type Subscriber struct {
	service *Service
	logger  *slog.Logger
}

// NewSubscriber creates the inbound request router.
func NewSubscriber(service *Service, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{service: service, logger: logger}
}

// Start subscribes to the request topic. It returns once the subscription is
// established; message handling continues until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context, subscriber pubsub.Subscriber) error {
	return subscriber.Subscribe(ctx, TopicRequests.Name(), s.handle)
}

func (s *Subscriber) handle(ctx context.Context, msg pubsub.Message) error {
	event := msg.Metadata["event"]
	switch event {
	case EventQuickMatch:
		var payload quickMatchPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				s.logger.Warn("malformed quick match payload",
					"connection_id", msg.ConnectionID, "error", err)
				return nil
			}
		}
		profile := Profile{Name: payload.Name, Rating: payload.Rating}
		if err := s.service.QuickMatch(ctx, msg.ConnectionID, profile, payload.Preferences); err != nil {
			s.logger.Error("quick match failed",
				"connection_id", msg.ConnectionID, "error", err)
		}
	case EventCancel:
		s.service.Cancel(ctx, msg.ConnectionID)
	default:
		s.logger.Warn("unknown matchmaking event", "event", event,
			"connection_id", msg.ConnectionID)
	}
	return nil
}
