package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.uber.org/fx"
)

// Registry resolves plugins by id. Lookups hit an in-process cache first; the
// store is consulted on a miss.
type Registry struct {
	store  Store
	logger *slog.Logger

	cacheMu sync.RWMutex
	cache   map[PluginID]Plugin
}

func (r *Registry) Get(ctx context.Context, id PluginID) (Plugin, error) {
	r.cacheMu.RLock()
	p, exist := r.cache[id]
	r.cacheMu.RUnlock()
	if exist {
		return p, nil
	}

	p, err := r.store.Get(ctx, id)
	if err != nil {
		return Plugin{}, err
	}

	r.cacheMu.Lock()
	r.cache[id] = p
	r.cacheMu.Unlock()
	return p, nil
}

func (r *Registry) List(ctx context.Context) ([]Plugin, error) {
	return r.store.List(ctx)
}

// Install validates and stores a plugin, replacing an existing entry.
func (r *Registry) Install(ctx context.Context, p Plugin) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := r.store.Put(ctx, p); err != nil {
		return fmt.Errorf("store plugin %s: %w", p.ID, err)
	}

	r.cacheMu.Lock()
	r.cache[p.ID] = p
	r.cacheMu.Unlock()
	return nil
}

// LoadCatalog installs every plugin of a JSON array file. Invalid entries are
// skipped and reported together.
func (r *Registry) LoadCatalog(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read plugin catalog: %w", err)
	}

	var plugins []Plugin
	if err := json.Unmarshal(raw, &plugins); err != nil {
		return 0, fmt.Errorf("decode plugin catalog: %w", err)
	}

	var (
		installed int
		errs      []error
	)
	for _, p := range plugins {
		if err := r.Install(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		installed++
	}

	r.logger.Info("plugin catalog loaded",
		slog.String("path", path),
		slog.Int("installed", installed),
		slog.Int("rejected", len(errs)),
	)
	return installed, errors.Join(errs...)
}

type NewRegistryParams struct {
	fx.In

	Store  Store
	Logger *slog.Logger
}

func NewRegistry(params NewRegistryParams) *Registry {
	return &Registry{
		store:  params.Store,
		logger: params.Logger,
		cache:  make(map[PluginID]Plugin),
	}
}
