package identity

import (
	"context"
	"sync"
	"time"

	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

type User struct {
	ID          protocol.UserID `json:"id"`
	DisplayName string          `json:"displayName"`
	Status      string          `json:"status"`
	LastSeen    time.Time       `json:"lastSeen"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// UserRecord is what a UserStore persists. SecretHash never leaves the
// identity package.
type UserRecord struct {
	User
	SecretHash []byte `json:"secretHash"`
}

//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../../mocks/mock_user_store.go -package=mocks
type UserStore interface {
	Insert(ctx context.Context, record UserRecord) error
	Get(ctx context.Context, id protocol.UserID) (UserRecord, error)
	Update(ctx context.Context, record UserRecord) error
}

type memoryUserStore struct {
	mu    sync.RWMutex
	users map[protocol.UserID]UserRecord
}

func (s *memoryUserStore) Insert(_ context.Context, record UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exist := s.users[record.ID]; exist {
		return ErrUserAlreadyExist
	}
	s.users[record.ID] = record
	return nil
}

func (s *memoryUserStore) Get(_ context.Context, id protocol.UserID) (UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exist := s.users[id]
	if !exist {
		return UserRecord{}, ErrUserNotFound
	}
	return record, nil
}

func (s *memoryUserStore) Update(_ context.Context, record UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exist := s.users[record.ID]; !exist {
		return ErrUserNotFound
	}
	s.users[record.ID] = record
	return nil
}

func NewMemoryUserStore() UserStore {
	return &memoryUserStore{users: make(map[protocol.UserID]UserRecord)}
}
