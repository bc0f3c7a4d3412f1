package storage

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
)

const pluginPrefix = "plugin:"

type PluginStore struct {
	db *badger.DB
}

func (s *PluginStore) Get(ctx context.Context, id plugin.PluginID) (plugin.Plugin, error) {
	if err := ctx.Err(); err != nil {
		return plugin.Plugin{}, err
	}

	var p plugin.Plugin
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(pluginPrefix+id), plugin.ErrPluginNotFound, &p)
	})
	if err != nil {
		return plugin.Plugin{}, err
	}
	return p, nil
}

func (s *PluginStore) List(ctx context.Context) ([]plugin.Plugin, error) {
	plugins, err := scanJSON[plugin.Plugin](ctx, s.db, []byte(pluginPrefix))
	if err != nil {
		return nil, err
	}
	if plugins == nil {
		plugins = []plugin.Plugin{}
	}
	return plugins, nil
}

func (s *PluginStore) Put(ctx context.Context, p plugin.Plugin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, []byte(pluginPrefix+p.ID), p)
	})
}

var _ plugin.Store = (*PluginStore)(nil)

func NewPluginStore(db *badger.DB) *PluginStore {
	return &PluginStore{db: db}
}
