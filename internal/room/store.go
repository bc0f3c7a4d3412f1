package room

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/samber/lo"
	"go.uber.org/fx"
)

type CreateOption struct {
	Name         string `validate:"required,max=64"`
	MaxUsers     int    `validate:"min=1"`
	Password     string
	WithAdminID  bool
	ParentRoomID *protocol.RoomID
	Metadata     map[string]any
	OwnerID      protocol.UserID
}

type JoinCredentials struct {
	Password string
	AdminID  *string
}

type JoinResult struct {
	Room    Room
	IsAdmin bool
}

type LeaveResult struct {
	Room    Room
	UserID  protocol.UserID
	Deleted bool
}

var validate = validator.New()

// Store owns every room. A single lock covers the room map and the rooms, so
// the last leave and the deletion of an empty room happen in one critical
// section and a concurrent join sees either the live room or no room.
type Store struct {
	mu    sync.RWMutex
	rooms map[protocol.RoomID]*Room

	deleteEmpty     bool
	unjoinedTTL     time.Duration
	maxUsersCap     int
	logger          *slog.Logger
	now             func() time.Time
	generateID      func() string
	generateAdminID func() string
}

func (s *Store) Create(option CreateOption) (Room, error) {
	option.Name = strings.TrimSpace(option.Name)
	if err := s.validateCreate(option); err != nil {
		return Room{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var parent *Room
	if option.ParentRoomID != nil {
		p, exist := s.rooms[*option.ParentRoomID]
		if !exist {
			return Room{}, ErrParentRoomNotExist
		}
		parent = p
	}

	r := &Room{
		ID:          s.generateID(),
		Name:        option.Name,
		MaxUsers:    option.MaxUsers,
		Metadata:    option.Metadata,
		OwnerID:     option.OwnerID,
		HasPassword: option.Password != "",
		IsAdminRoom: option.WithAdminID,
		CreatedAt:   s.now(),
		Plugins:     make(map[string]plugin.Plugin),
		password:    option.Password,
	}
	if option.WithAdminID {
		r.adminID = s.generateAdminID()
	}
	if parent != nil {
		parentID := parent.ID
		r.ParentRoom = &parentID
		parent.ChildRooms = append(parent.ChildRooms, r.ID)
	}

	s.rooms[r.ID] = r
	s.logger.Debug("room created", slog.String("roomId", r.ID), slog.String("name", r.Name))
	return r.clone(), nil
}

func (s *Store) validateCreate(option CreateOption) error {
	var errs []error

	if err := validate.Struct(option); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			switch {
			case fe.Field() == "Name" && fe.Tag() == "required":
				errs = append(errs, ErrMissingName)
			case fe.Field() == "Name" && fe.Tag() == "max":
				errs = append(errs, ErrNameTooLong)
			case fe.Field() == "MaxUsers":
				errs = append(errs, ErrInvalidMaxUsers)
			}
		}
	}

	if option.MaxUsers > s.maxUsersCap && !lo.Contains(errs, ErrInvalidMaxUsers) {
		errs = append(errs, ErrInvalidMaxUsers)
	}
	return errors.Join(errs...)
}

func (s *Store) Get(roomID protocol.RoomID) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exist := s.rooms[roomID]
	if !exist {
		return Room{}, ErrRoomNotExist
	}
	return r.clone(), nil
}

func (s *Store) List() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		result = append(result, r.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// RoomsOf returns the rooms userID is a member of.
func (s *Store) RoomsOf(userID protocol.UserID) []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Room
	for _, r := range s.rooms {
		if r.IsMember(userID) {
			result = append(result, r.clone())
		}
	}
	return result
}

// Join admits userID. Checks run in order and the first failure wins: the
// room exists, the user is not a member yet, password and admin id match,
// the room has a free seat.
func (s *Store) Join(roomID protocol.RoomID, userID protocol.UserID, creds JoinCredentials) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exist := s.rooms[roomID]
	if !exist {
		return JoinResult{}, ErrRoomNotExist
	}

	if r.IsMember(userID) {
		return JoinResult{}, ErrAlreadyJoined
	}

	if r.password != "" && r.password != creds.Password {
		return JoinResult{}, ErrWrongPassword
	}

	grantedByAdminID := false
	if creds.AdminID != nil {
		if r.adminID == "" || r.adminID != *creds.AdminID {
			return JoinResult{}, ErrInvalidAdminID
		}
		grantedByAdminID = true
	}

	if len(r.JoinedUsers) >= r.MaxUsers {
		return JoinResult{}, ErrAlreadyFull
	}

	r.JoinedUsers = append(r.JoinedUsers, userID)

	isAdmin := grantedByAdminID || r.OwnerID == userID
	if isAdmin {
		r.AdminUsers = append(r.AdminUsers, userID)
	}

	return JoinResult{Room: r.clone(), IsAdmin: isAdmin}, nil
}

// Leave removes userID and revokes its admin right. An emptied room is
// deleted in the same critical section when the delete-empty policy is on.
func (s *Store) Leave(roomID protocol.RoomID, userID protocol.UserID) (LeaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exist := s.rooms[roomID]
	if !exist {
		return LeaveResult{}, ErrRoomNotExist
	}
	if !r.IsMember(userID) {
		return LeaveResult{}, ErrNotMember
	}

	return s.leaveLocked(r, userID), nil
}

// LeaveAll removes userID from every room it is a member of.
func (s *Store) LeaveAll(userID protocol.UserID) []LeaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var joined []*Room
	for _, r := range s.rooms {
		if r.IsMember(userID) {
			joined = append(joined, r)
		}
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].CreatedAt.Before(joined[j].CreatedAt) })

	result := make([]LeaveResult, 0, len(joined))
	for _, r := range joined {
		result = append(result, s.leaveLocked(r, userID))
	}
	return result
}

func (s *Store) leaveLocked(r *Room, userID protocol.UserID) LeaveResult {
	r.JoinedUsers = lo.Without(r.JoinedUsers, userID)
	r.AdminUsers = lo.Without(r.AdminUsers, userID)

	result := LeaveResult{UserID: userID}
	if len(r.JoinedUsers) == 0 && s.deleteEmpty {
		s.deleteLocked(r)
		result.Deleted = true
	}
	result.Room = r.clone()
	return result
}

func (s *Store) deleteLocked(r *Room) {
	if r.ParentRoom != nil {
		if parent, exist := s.rooms[*r.ParentRoom]; exist {
			parent.ChildRooms = lo.Without(parent.ChildRooms, r.ID)
		}
	}
	for _, childID := range r.ChildRooms {
		if child, exist := s.rooms[childID]; exist {
			child.ParentRoom = nil
		}
	}
	delete(s.rooms, r.ID)
	s.logger.Debug("room deleted", slog.String("roomId", r.ID))
}

// Reap deletes rooms nobody joined within the unjoined TTL of their
// creation. Rooms that had members are deleted by their last leave instead.
func (s *Store) Reap() []protocol.RoomID {
	if !s.deleteEmpty || s.unjoinedTTL <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(-s.unjoinedTTL)

	var reaped []protocol.RoomID
	for _, r := range s.rooms {
		if len(r.JoinedUsers) == 0 && !r.CreatedAt.After(deadline) {
			reaped = append(reaped, r.ID)
		}
	}
	for _, roomID := range reaped {
		s.deleteLocked(s.rooms[roomID])
	}
	return reaped
}

func (s *Store) reapLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if reaped := s.Reap(); len(reaped) > 0 {
				s.logger.Info("unjoined rooms reaped", slog.Int("count", len(reaped)))
			}
		}
	}
}

// SetPlugin mounts p into iframeID, or clears the slot when p is nil. Only
// room admins may change slots.
func (s *Store) SetPlugin(roomID protocol.RoomID, userID protocol.UserID, iframeID string, p *plugin.Plugin) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exist := s.rooms[roomID]
	if !exist {
		return Room{}, ErrRoomNotExist
	}
	if iframeID == "" {
		return Room{}, ErrMissingIframeID
	}
	if !r.IsAdmin(userID) {
		return Room{}, ErrPermissionDenied
	}

	if p == nil {
		delete(r.Plugins, iframeID)
	} else {
		r.Plugins[iframeID] = *p
	}
	return r.clone(), nil
}

type NewStoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    *variables.Config
	Logger    *slog.Logger
}

func NewStore(params NewStoreParams) *Store {
	s := &Store{
		rooms:           make(map[protocol.RoomID]*Room),
		deleteEmpty:     params.Config.DeleteEmptyRooms,
		unjoinedTTL:     params.Config.UnjoinedRoomTTL,
		maxUsersCap:     params.Config.RoomMaxUsersLimit,
		logger:          params.Logger,
		now:             time.Now,
		generateID:      uuid.NewString,
		generateAdminID: uuid.NewString,
	}

	if params.Lifecycle != nil && s.deleteEmpty && s.unjoinedTTL > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		params.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go s.reapLoop(ctx, min(s.unjoinedTTL, time.Minute))
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}
	return s
}
