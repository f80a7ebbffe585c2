//go:build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/Ponesicek/s4chat/internal/domain"
	"github.com/Ponesicek/s4chat/internal/infrastructure"
	"github.com/Ponesicek/s4chat/internal/interfaces"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}

func CreateDataInitializer() (*DataInitializer, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		wire.Struct(new(DataInitializer), "*"),
	)
	return nil, nil
}
