package interfaces

import (
	"github.com/google/wire"

	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver"
	"github.com/Ponesicek/s4chat/internal/interfaces/httpserver/handlers"
)

var InterfacesProvider = wire.NewSet(
	handlers.NewProvider,
	httpserver.New,
)
