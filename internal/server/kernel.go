package server

import (
	"github.com/sinedd777/towerdef/internal/matchmaking"
	"github.com/sinedd777/towerdef/internal/module"
	"github.com/sinedd777/towerdef/internal/session"
	"github.com/sinedd777/towerdef/internal/websocket"
)

// AppModules is the central registry of all application modules. The kernel
// iterates over this slice to register and boot each module, in order: the
// session module must come first (it publishes the session directory), the
// websocket module last (its disconnect hooks reach into the other two).
var AppModules = []module.Module{
	&session.Module{},
	&matchmaking.Module{},
	&websocket.Module{},
}
