package connection

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

// Departure describes a connection that left the registry.
type Departure struct {
	ConnectionID protocol.ConnectionID
	UserID       protocol.UserID
	TokenID      string
	// LastForUser is set when the user has no other live connection.
	LastForUser bool
}

type Registry struct {
	mu          sync.RWMutex
	connections map[protocol.ConnectionID]*Connection
	byUser      map[protocol.UserID]map[protocol.ConnectionID]struct{}

	listenersMu sync.RWMutex
	listeners   []func(Departure)

	bufferSize int
	logger     *slog.Logger
}

func (r *Registry) Register(transport Transport) *Connection {
	conn := newConnection(uuid.NewString(), transport, r.bufferSize, r.logger)

	r.mu.Lock()
	r.connections[conn.ID] = conn
	r.mu.Unlock()

	r.logger.Debug("connection registered", slog.String("connId", conn.ID))
	return conn
}

// Unregister removes and closes the connection, then notifies listeners.
// It reports false for an unknown id.
func (r *Registry) Unregister(id protocol.ConnectionID) bool {
	r.mu.Lock()
	conn, exist := r.connections[id]
	if !exist {
		r.mu.Unlock()
		return false
	}
	delete(r.connections, id)

	userID, tokenID, bound := conn.Identity()
	last := false
	if bound {
		last = r.unbindLocked(userID, id)
	}
	r.mu.Unlock()

	conn.Close(websocket.CloseNormalClosure, "")

	departure := Departure{
		ConnectionID: id,
		UserID:       userID,
		TokenID:      tokenID,
		LastForUser:  last,
	}

	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(departure)
	}

	r.logger.Debug("connection unregistered", slog.String("connId", id), slog.String("userId", userID))
	return true
}

// OnUnregister subscribes fn to every departure. Listeners run on the
// goroutine that called Unregister.
func (r *Registry) OnUnregister(fn func(Departure)) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Registry) Lookup(id protocol.ConnectionID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exist := r.connections[id]
	return conn, exist
}

// Send queues a frame for one connection.
func (r *Registry) Send(id protocol.ConnectionID, frame protocol.Outbound) error {
	conn, exist := r.Lookup(id)
	if !exist || conn.Closed() {
		return ErrConnectionGone
	}
	return conn.Enqueue(frame)
}

// SendToUser queues a frame on every live connection of a user and returns
// how many accepted it.
func (r *Registry) SendToUser(userID protocol.UserID, frame protocol.Outbound) int {
	conns := r.ConnectionsOf(userID)
	if len(conns) == 0 {
		return 0
	}

	payload, err := protocol.Marshal(frame)
	if err != nil {
		r.logger.Error("unable marshal frame", slog.Any("err", err))
		return 0
	}

	delivered := 0
	for _, conn := range conns {
		if err := conn.EnqueueRaw(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) ConnectionsOf(userID protocol.UserID) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	result := make([]*Connection, 0, len(ids))
	for id := range ids {
		if conn, exist := r.connections[id]; exist && !conn.Closed() {
			result = append(result, conn)
		}
	}
	return result
}

func (r *Registry) Online(userID protocol.UserID) bool {
	return len(r.ConnectionsOf(userID)) > 0
}

// Bind authenticates a connection as userID under the session tokenID. The
// returned Departure describes the identity the connection held before, so
// the caller can end its session and, when another user lost its last
// connection, release what that user held.
func (r *Registry) Bind(id protocol.ConnectionID, userID protocol.UserID, tokenID string) (Departure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exist := r.connections[id]
	if !exist {
		return Departure{}, ErrConnectionGone
	}

	prevUser, prevToken := conn.setIdentity(userID, tokenID)
	prev := Departure{ConnectionID: id, TokenID: prevToken}
	if prevUser != "" && prevUser != userID {
		prev.UserID = prevUser
		prev.LastForUser = r.unbindLocked(prevUser, id)
	}

	ids, exist := r.byUser[userID]
	if !exist {
		ids = make(map[protocol.ConnectionID]struct{})
		r.byUser[userID] = ids
	}
	ids[id] = struct{}{}
	return prev, nil
}

// Identity returns the user and session bound to a connection.
func (r *Registry) Identity(id protocol.ConnectionID) (protocol.UserID, string, bool) {
	conn, exist := r.Lookup(id)
	if !exist {
		return "", "", false
	}
	return conn.Identity()
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

func (r *Registry) unbindLocked(userID protocol.UserID, id protocol.ConnectionID) (last bool) {
	ids := r.byUser[userID]
	delete(ids, id)
	if len(ids) == 0 {
		delete(r.byUser, userID)
		return true
	}
	return false
}

type NewRegistryParams struct {
	fx.In

	Config *variables.Config
	Logger *slog.Logger
}

func NewRegistry(params NewRegistryParams) *Registry {
	return &Registry{
		connections: make(map[protocol.ConnectionID]*Connection),
		byUser:      make(map[protocol.UserID]map[protocol.ConnectionID]struct{}),
		bufferSize:  params.Config.ConnectionBufferSize,
		logger:      params.Logger,
	}
}
