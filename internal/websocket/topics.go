package websocket

import (
	"strings"

	"github.com/sinedd777/towerdef/internal/topicmgr"
)

// Framework-level connection lifecycle topics. Modules subscribe to these to
// react to players arriving and leaving.

var (
	// TopicConnected fires once per accepted connection.
	TopicConnected = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "system.websocket.connected",
		Description: "A client connection was accepted and assigned an ID",
	})

	// TopicDisconnected fires once per closed connection.
	TopicDisconnected = topicmgr.DefineFramework(topicmgr.TopicConfig{
		Name:        "system.websocket.disconnected",
		Description: "A client connection closed",
	})
)

// RegisterTopics registers the lifecycle topics with the default manager.
// It is idempotent: already-registered topics are skipped.
func RegisterTopics() error {
	return RegisterTopicsWithManager(topicmgr.Default())
}

// RegisterTopicsWithManager registers the lifecycle topics with the given manager.
func RegisterTopicsWithManager(manager *topicmgr.Manager) error {
	topics := []topicmgr.Topic{
		TopicConnected,
		TopicDisconnected,
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
