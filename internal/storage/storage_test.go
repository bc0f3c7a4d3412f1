package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/stretchr/testify/require"
)

func TestUserStore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	db, err := Open("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	req.NoError(err)
	defer db.Close()

	store := NewUserStore(db)
	record := identity.UserRecord{
		User: identity.User{
			ID:          "user-1",
			DisplayName: "Alice",
			CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		SecretHash: []byte("hash"),
	}

	req.NoError(store.Insert(ctx, record))
	req.ErrorIs(store.Insert(ctx, record), identity.ErrUserAlreadyExist)

	got, err := store.Get(ctx, "user-1")
	req.NoError(err)
	req.Equal("Alice", got.DisplayName)
	req.Equal([]byte("hash"), got.SecretHash)
	req.True(record.CreatedAt.Equal(got.CreatedAt))

	record.Status = "away"
	req.NoError(store.Update(ctx, record))
	got, err = store.Get(ctx, "user-1")
	req.NoError(err)
	req.Equal("away", got.Status)

	_, err = store.Get(ctx, "missing")
	req.ErrorIs(err, identity.ErrUserNotFound)

	req.ErrorIs(store.Update(ctx, identity.UserRecord{User: identity.User{ID: "missing"}}), identity.ErrUserNotFound)
}

func TestPluginStore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	db, err := Open(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	req.NoError(err)
	defer db.Close()

	store := NewPluginStore(db)

	plugins, err := store.List(ctx)
	req.NoError(err)
	req.Empty(plugins)

	whiteboard := plugin.Plugin{ID: "whiteboard", Name: "Whiteboard", Version: "1.0.0", URL: "https://plugins.local/whiteboard"}
	chess := plugin.Plugin{ID: "chess", Name: "Chess", Version: "0.3.1", URL: "https://plugins.local/chess"}
	req.NoError(store.Put(ctx, whiteboard))
	req.NoError(store.Put(ctx, chess))

	plugins, err = store.List(ctx)
	req.NoError(err)
	req.Equal([]plugin.Plugin{chess, whiteboard}, plugins)

	got, err := store.Get(ctx, "chess")
	req.NoError(err)
	req.Equal(chess, got)

	_, err = store.Get(ctx, "missing")
	req.ErrorIs(err, plugin.ErrPluginNotFound)
}

func TestRegistryOverBadger(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open("", logger)
	req.NoError(err)
	defer db.Close()

	registry := plugin.NewRegistry(plugin.NewRegistryParams{Store: NewPluginStore(db), Logger: logger})
	req.NoError(registry.Install(ctx, plugin.Plugin{ID: "poll", Name: "Poll", Version: "2.0.0", URL: "https://plugins.local/poll"}))

	got, err := registry.Get(ctx, "poll")
	req.NoError(err)
	req.Equal("Poll", got.Name)
}
