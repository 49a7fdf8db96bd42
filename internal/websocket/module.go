package websocket

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/registry"
	"github.com/sinedd777/towerdef/internal/session"
)

// KeyBridge is the registry key for the websocket bridge.
var KeyBridge = registry.Key[*Bridge]("websocket.bridge")

// Module wires the websocket bridge into the application. It must boot after
// the session and matchmaking modules: disconnect hooks reach into both.
type Module struct {
	bridge *Bridge
}

func (m *Module) Name() string { return "websocket" }

func (m *Module) Register(reg *registry.Registry) error {
	return RegisterTopics()
}

func (m *Module) Boot(ctx context.Context, router *echo.Group, reg *registry.Registry) error {
	publisher := registry.MustGet(reg, registry.KeyPublisher)
	subscriber := registry.MustGet(reg, registry.KeySubscriber)
	sessions := registry.MustGet(reg, session.KeyManager)
	matchmaker := registry.MustGet(reg, matchmaking.KeyService)

	m.bridge = NewBridge(publisher, nil)
	registry.Set(reg, KeyBridge, m.bridge)

	// A dropped connection leaves its queue slot and session behind.
	m.bridge.OnDisconnect(func(connectionID string) {
		matchmaker.Cancel(context.Background(), connectionID)
		sessions.Leave(connectionID)
	})

	// Ping round-trips feed the matchmaker's per-player latency averages.
	m.bridge.OnLatency(func(connectionID string, rtt time.Duration) {
		matchmaker.ObserveLatency(connectionID, float64(rtt)/float64(time.Millisecond))
	})

	outbound := []string{
		game.TopicResults.Name(),
		game.TopicPathsUpdated.Name(),
		matchmaking.TopicQueued.Name(),
		matchmaking.TopicJoined.Name(),
		matchmaking.TopicMatched.Name(),
		matchmaking.TopicCancelled.Name(),
		matchmaking.TopicTimeout.Name(),
		matchmaking.TopicError.Name(),
	}
	if err := m.bridge.DeliverTopics(ctx, subscriber, outbound...); err != nil {
		return err
	}

	go m.bridge.Run(ctx)

	router.GET("/ws", m.bridge.Handler())
	return nil
}

func (m *Module) Shutdown(context.Context) error { return nil }
