package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Open opens a badger database at path. An empty path keeps everything in
// memory.
func Open(path string, logger *slog.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("database opening failed: %w", err)
	}

	logger.Info("badger opened", slog.String("path", path), slog.Bool("in_memory", path == ""))
	return db, nil
}

func getJSON(txn *badger.Txn, key []byte, notFound error, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return notFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return txn.Set(key, data)
}

// scanJSON decodes every value under prefix in key order.
func scanJSON[T any](ctx context.Context, db *badger.DB, prefix []byte) ([]T, error) {
	var result []T
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var value T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			}); err != nil {
				return err
			}
			result = append(result, value)
		}
		return nil
	})
	return result, err
}
