package storage

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

const userPrefix = "user:"

type UserStore struct {
	db *badger.DB
}

func userKey(id protocol.UserID) []byte {
	return []byte(userPrefix + id)
}

func (s *UserStore) Insert(ctx context.Context, record identity.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(record.ID)
		if _, err := txn.Get(key); err == nil {
			return identity.ErrUserAlreadyExist
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, key, record)
	})
}

func (s *UserStore) Get(ctx context.Context, id protocol.UserID) (identity.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return identity.UserRecord{}, err
	}

	var record identity.UserRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), identity.ErrUserNotFound, &record)
	})
	if err != nil {
		return identity.UserRecord{}, err
	}
	return record, nil
}

func (s *UserStore) Update(ctx context.Context, record identity.UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(record.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return identity.ErrUserNotFound
		} else if err != nil {
			return err
		}
		return setJSON(txn, key, record)
	})
}

var _ identity.UserStore = (*UserStore)(nil)

func NewUserStore(db *badger.DB) *UserStore {
	return &UserStore{db: db}
}
