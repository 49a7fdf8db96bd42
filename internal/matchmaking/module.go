package matchmaking

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/sinedd777/towerdef/internal/registry"
)

// KeyService is the registry key other modules use to reach the matchmaker.
var KeyService = registry.Key[*Service]("matchmaking.service")

// KeyDirectory is set by whichever module owns session placement; the
// matchmaker consumes it during Boot.
var KeyDirectory = registry.Key[SessionDirectory]("matchmaking.sessions")

// Module wires the matchmaking service and its request router into the
// application.
type Module struct {
	service    *Service
	subscriber *Subscriber
}

func (m *Module) Name() string { return "matchmaking" }

func (m *Module) Register(*registry.Registry) error {
	return RegisterTopics()
}

// Boot builds the service around the session directory registered by the
// session module, then starts the request router and the queue passes.
func (m *Module) Boot(ctx context.Context, _ *echo.Group, reg *registry.Registry) error {
	cfg := reg.Config()
	publisher := registry.MustGet(reg, registry.KeyPublisher)
	subscriber := registry.MustGet(reg, registry.KeySubscriber)
	directory := registry.MustGet(reg, KeyDirectory)

	m.service = NewService(directory, publisher,
		WithTimeout(cfg.GetMatchmakingTimeout()),
		WithSweepInterval(cfg.GetSweepInterval()),
		WithCleanupInterval(cfg.GetCleanupInterval()),
	)
	registry.Set(reg, KeyService, m.service)

	m.subscriber = NewSubscriber(m.service, nil)
	if err := m.subscriber.Start(ctx, subscriber); err != nil {
		return err
	}

	m.service.Start(ctx)
	return nil
}

func (m *Module) Shutdown(context.Context) error {
	if m.service != nil {
		m.service.Shutdown()
	}
	return nil
}
