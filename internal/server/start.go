package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Start boots the modules, runs the HTTP server, and blocks until an
// interrupt arrives, then shuts everything down gracefully.
func (s *Server) Start() {
	if err := s.Boot(context.Background()); err != nil {
		slog.Error("boot failed", "error", err)
		os.Exit(1)
	}

	go func() {
		addr := ":" + s.Cfg.GetPort()
		if err := s.E.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.Stop(ctx)
	if err := s.E.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}
