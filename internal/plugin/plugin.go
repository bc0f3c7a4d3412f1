package plugin

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrPluginNotFound = errors.New("plugin not found")
	ErrInvalidPlugin  = errors.New("invalid plugin")
)

type PluginID = string

// Plugin is immutable reference data mounted into a room iframe slot.
type Plugin struct {
	ID          PluginID `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Version     string   `json:"version" validate:"required"`
	Description string   `json:"description"`
	URL         string   `json:"url" validate:"required,url"`
}

var validate = validator.New()

func (p Plugin) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidPlugin, err)
	}
	return nil
}

// Store is the persistence boundary of the registry.
type Store interface {
	Get(ctx context.Context, id PluginID) (Plugin, error)
	List(ctx context.Context) ([]Plugin, error)
	Put(ctx context.Context, p Plugin) error
}

type memoryStore struct {
	mu      sync.RWMutex
	plugins map[PluginID]Plugin
}

func (s *memoryStore) Get(_ context.Context, id PluginID) (Plugin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exist := s.plugins[id]
	if !exist {
		return Plugin{}, ErrPluginNotFound
	}
	return p, nil
}

func (s *memoryStore) List(context.Context) ([]Plugin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Plugin, 0, len(s.plugins))
	for _, p := range s.plugins {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *memoryStore) Put(_ context.Context, p Plugin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plugins[p.ID] = p
	return nil
}

func NewMemoryStore() Store {
	return &memoryStore{plugins: make(map[PluginID]Plugin)}
}
