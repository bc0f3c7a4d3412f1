package main

import (
	"context"
	"log/slog"

	"github.com/romashorodok/conferencing-platform/internal/connection"
	"github.com/romashorodok/conferencing-platform/internal/coordinator"
	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/internal/signal"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/service"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

func connections(registry *connection.Registry) coordinator.Connections {
	return registry
}

type LoadPluginCatalog_Params struct {
	fx.In

	Registry *plugin.Registry
	Config   *variables.Config
	Logger   *slog.Logger
}

func LoadPluginCatalog(params LoadPluginCatalog_Params) error {
	if params.Config.PluginCatalog == "" {
		return nil
	}

	installed, err := params.Registry.LoadCatalog(context.Background(), params.Config.PluginCatalog)
	if err != nil && installed == 0 {
		return err
	}
	if err != nil {
		params.Logger.Warn("plugin catalog partially loaded", slog.Any("err", err))
	}
	return nil
}

func BindDisconnect(registry *connection.Registry, coord *coordinator.Coordinator) {
	registry.OnUnregister(coord.Disconnect)
}

func main() {
	fx.New(
		fx.Provide(
			identity.NewTokenService,
			identity.NewDirectory,
			room.NewStore,
			plugin.NewRegistry,
			connection.NewRegistry,
			connections,
			coordinator.NewCoordinator,
			signal.NewCorrelator,

			protocol.AsHttpController(signal.NewSignalController),
			protocol.AsHttpController(room.NewRoomController),
			protocol.AsHttpController(plugin.NewPluginController),
			protocol.AsHttpController(identity.NewIdentityController),
		),

		fx.Module("signal",
			fx.Invoke(BindDisconnect),
			fx.Invoke(LoadPluginCatalog),
		),

		service.ConfigModule,
		service.LoggerModule,
		service.StorageModule,
		service.WebrtcModule,
		service.HttpModule,
	).Run()
}
