package registry

import (
	"github.com/sinedd777/towerdef/internal/pubsub"
)

// Well-known service keys shared across modules.
var (
	// KeyPublisher is the bus publisher every module emits events through.
	KeyPublisher = Key[pubsub.Publisher]("core.publisher")

	// KeySubscriber is the bus subscriber modules consume events from.
	KeySubscriber = Key[pubsub.Subscriber]("core.subscriber")
)
