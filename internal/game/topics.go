package game

import (
	"strings"

	"github.com/sinedd777/towerdef/internal/topicmgr"
)

// Topics owned by the game module. Inbound actions and outbound results both
// ride the bus; the websocket bridge is just another subscriber.

var (
	// TopicActions carries every client-submitted action. The originating
	// event name and connection travel in the message metadata.
	TopicActions = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "game.actions",
		Module:      "game",
		Description: "Client-submitted game actions awaiting authoritative processing",
	})

	// TopicResults carries the uniform {success, reason?, data?} result for
	// each processed action, addressed to the submitting connection.
	TopicResults = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "game.results",
		Module:      "game",
		Description: "Per-action results addressed back to the submitting connection",
	})

	// TopicPathsUpdated announces re-derived enemy routes after an obstacle
	// change, addressed to every member of the affected session.
	TopicPathsUpdated = topicmgr.DefineModule(topicmgr.TopicConfig{
		Name:        "game.paths_updated",
		Module:      "game",
		Description: "Recomputed per-player enemy routes after an obstacle change",
	})
)

// EventPathsUpdated is the client-facing event name for route broadcasts.
// Action results carry the submitted action's own event name instead.
const EventPathsUpdated = "game:paths_updated"

// RegisterTopics registers the game module topics with the default manager.
// It is idempotent: already-registered topics are skipped.
func RegisterTopics() error {
	return RegisterTopicsWithManager(topicmgr.Default())
}

// RegisterTopicsWithManager registers the game module topics with the given manager.
func RegisterTopicsWithManager(manager *topicmgr.Manager) error {
	topics := []topicmgr.Topic{
		TopicActions,
		TopicResults,
		TopicPathsUpdated,
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
