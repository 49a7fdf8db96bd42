package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sinedd777/towerdef/internal/config"
	"github.com/sinedd777/towerdef/internal/logging"
	"github.com/sinedd777/towerdef/internal/module"
	"github.com/sinedd777/towerdef/internal/pubsub"
	"github.com/sinedd777/towerdef/internal/registry"
)

// Server holds the dependencies for the application: the HTTP layer, the
// message bus, and the module registry everything else hangs off.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Registry *registry.Registry

	bus     *pubsub.WatermillBridge
	modules []module.Module
	cancel  context.CancelFunc
}

// New creates a server from environment configuration.
func New() *Server {
	logging.New()
	return NewWithConfig(config.New())
}

// NewWithConfig creates a server around an explicit configuration provider.
// Tests use this to avoid touching the environment.
func NewWithConfig(cfg config.Provider) *Server {
	bus := pubsub.NewWatermillBridge()

	reg := registry.New(cfg)
	registry.Set(reg, registry.KeyPublisher, pubsub.Publisher(bus))
	registry.Set(reg, registry.KeySubscriber, pubsub.Subscriber(bus))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	return &Server{
		E:        e,
		Cfg:      cfg,
		Registry: reg,
		bus:      bus,
		modules:  AppModules,
	}
}

// Boot runs the two-phase module startup: every module registers its
// services, then every module boots. Background work started by modules is
// tied to the returned context's lifetime via Stop.
func (s *Server) Boot(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, m := range s.modules {
		if err := m.Register(s.Registry); err != nil {
			return err
		}
		slog.Info("module registered", "module", m.Name())
	}

	root := s.E.Group("")
	for _, m := range s.modules {
		if err := m.Boot(ctx, root, s.Registry); err != nil {
			return err
		}
		slog.Info("module booted", "module", m.Name())
	}

	s.RegisterRoutes()
	return nil
}

// Stop shuts the modules and the bus down in reverse boot order.
func (s *Server) Stop(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Shutdown(ctx); err != nil {
			slog.Error("module shutdown failed", "module", s.modules[i].Name(), "error", err)
		}
	}
	if err := s.bus.Close(); err != nil {
		slog.Error("closing message bus", "error", err)
	}
}
