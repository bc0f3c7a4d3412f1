package service

import (
	"context"
	"log/slog"

	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/storage"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

type storage_Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *variables.Config
	Logger    *slog.Logger
}

type storage_Result struct {
	fx.Out

	Users   identity.UserStore
	Plugins plugin.Store
}

// stores keeps users and plugins in process memory unless STORAGE_PATH
// points at a badger directory.
func stores(params storage_Params) (storage_Result, error) {
	if params.Config.StoragePath == "" {
		params.Logger.Info("storage path is empty, using in-memory stores")
		return storage_Result{
			Users:   identity.NewMemoryUserStore(),
			Plugins: plugin.NewMemoryStore(),
		}, nil
	}

	db, err := storage.Open(params.Config.StoragePath, params.Logger)
	if err != nil {
		return storage_Result{}, err
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			params.Logger.Info("closing badger")
			return db.Close()
		},
	})

	return storage_Result{
		Users:   storage.NewUserStore(db),
		Plugins: storage.NewPluginStore(db),
	}, nil
}

var StorageModule = fx.Module("storage", fx.Provide(
	stores,
))
