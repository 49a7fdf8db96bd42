package session

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/sinedd777/towerdef/internal/game"
	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/registry"
	"github.com/sinedd777/towerdef/internal/script"
)

// KeyManager is the registry key other modules use to reach the session
// manager.
var KeyManager = registry.Key[*Manager]("session.manager")

// Module wires the session manager and action router into the application.
type Module struct {
	manager    *Manager
	subscriber *Subscriber
}

func (m *Module) Name() string { return "session" }

// Register builds the manager from configuration and shares it through the
// registry.
func (m *Module) Register(reg *registry.Registry) error {
	if err := game.RegisterTopics(); err != nil {
		return err
	}

	cfg := reg.Config()
	balance, err := script.NewEngineFromFile(cfg.GetBalanceScriptPath())
	if err != nil {
		return err
	}

	m.manager = NewManager(cfg.GetGridSize(), balance,
		WithPruneInterval(cfg.GetCleanupInterval()))
	registry.Set(reg, KeyManager, m.manager)
	// The manager doubles as the matchmaker's session directory.
	registry.Set(reg, matchmaking.KeyDirectory, matchmaking.SessionDirectory(m.manager))
	return nil
}

// Boot starts the action router and the rate-history housekeeping.
func (m *Module) Boot(ctx context.Context, _ *echo.Group, reg *registry.Registry) error {
	publisher := registry.MustGet(reg, registry.KeyPublisher)
	subscriber := registry.MustGet(reg, registry.KeySubscriber)

	m.subscriber = NewSubscriber(m.manager, publisher, nil)
	if err := m.subscriber.Start(ctx, subscriber); err != nil {
		return err
	}

	m.manager.Start(ctx)
	return nil
}

func (m *Module) Shutdown(context.Context) error {
	m.manager.Shutdown()
	return nil
}
