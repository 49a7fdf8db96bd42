package matchmaking

import (
	"strings"

	"github.com/sinedd777/towerdef/internal/topicmgr"
)

// Topics owned by the matchmaking module. The inbound topic carries raw
// client requests from the websocket bridge; the outbound topics carry
// per-connection notifications back out.

var (
	// TopicRequests carries quick-match and cancel requests from clients.
	// The originating event name and connection travel in message metadata.
	TopicRequests = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.requests",
		Module:      "matchmaking",
		Description: "Client matchmaking requests (quick match, cancel)",
	})

	// TopicQueued tells a player they are waiting, with their queue position.
	TopicQueued = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.queued",
		Module:      "matchmaking",
		Description: "Player entered the waiting queue",
	})

	// TopicJoined tells a player they were placed into an existing open session.
	TopicJoined = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.joined",
		Module:      "matchmaking",
		Description: "Player joined an existing open session",
	})

	// TopicMatched tells each grouped player about their new match.
	TopicMatched = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.matched",
		Module:      "matchmaking",
		Description: "A match formed and a session was created for it",
	})

	// TopicCancelled confirms a voluntary queue exit.
	TopicCancelled = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.cancelled",
		Module:      "matchmaking",
		Description: "Player left the queue voluntarily",
	})

	// TopicTimeout tells a player their request waited too long.
	TopicTimeout = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.timeout",
		Module:      "matchmaking",
		Description: "Player request evicted after exceeding the queue timeout",
	})

	// TopicError reports matchmaking failures back to the requesting player.
	TopicError = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "matchmaking.error",
		Module:      "matchmaking",
		Description: "Matchmaking failure notifications",
	})
)

// RegisterTopics registers the matchmaking topics with the default manager.
// It is idempotent: already-registered topics are skipped.
func RegisterTopics() error {
	return RegisterTopicsWithManager(topicmgr.Default())
}

// RegisterTopicsWithManager registers the matchmaking topics with the given manager.
func RegisterTopicsWithManager(manager *topicmgr.Manager) error {
	topics := []topicmgr.Topic{
		TopicRequests,
		TopicQueued,
		TopicJoined,
		TopicMatched,
		TopicCancelled,
		TopicTimeout,
		TopicError,
	}

	for _, topic := range topics {
		if err := manager.Register(topic); err != nil {
			if strings.Contains(err.Error(), "already registered") {
				continue
			}
			return err
		}
	}

	return nil
}
