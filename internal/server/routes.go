package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/registry"
	"github.com/sinedd777/towerdef/internal/session"
	"github.com/sinedd777/towerdef/internal/topicmgr"
	"github.com/sinedd777/towerdef/internal/websocket"
)

// RegisterRoutes sets up the non-module HTTP routes: health and
// introspection endpoints. The websocket route itself is registered by the
// websocket module during boot.
func (s *Server) RegisterRoutes() {
	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	s.E.GET("/topics", func(c echo.Context) error {
		type topicInfo struct {
			Name        string `json:"name"`
			Module      string `json:"module,omitempty"`
			Description string `json:"description"`
			Scope       string `json:"scope"`
		}
		var out []topicInfo
		for _, t := range topicmgr.List() {
			out = append(out, topicInfo{
				Name:        t.Name(),
				Module:      t.Module(),
				Description: t.Description(),
				Scope:       string(t.Scope()),
			})
		}
		return c.JSON(http.StatusOK, out)
	})

	s.E.GET("/stats", func(c echo.Context) error {
		stats := map[string]int{}
		if manager, ok := registry.Get(s.Registry, session.KeyManager); ok {
			stats["sessions"] = manager.Count()
		}
		if matchmaker, ok := registry.Get(s.Registry, matchmaking.KeyService); ok {
			stats["queued"] = matchmaker.QueueLen()
		}
		if bridge, ok := registry.Get(s.Registry, websocket.KeyBridge); ok {
			stats["connections"] = bridge.Connections()
		}
		return c.JSON(http.StatusOK, stats)
	})
}
