//go:generate go run go.uber.org/mock/mockgen -source=coordinator.go -destination=../../mocks/mock_connections.go -package=mocks
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/romashorodok/conferencing-platform/internal/connection"
	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

// Connections is the part of the connection registry the coordinator
// drives.
type Connections interface {
	SendToUser(userID protocol.UserID, frame protocol.Outbound) int
	Bind(connID protocol.ConnectionID, userID protocol.UserID, tokenID string) (connection.Departure, error)
	Identity(connID protocol.ConnectionID) (protocol.UserID, string, bool)
}

type call struct {
	connID  protocol.ConnectionID
	userID  protocol.UserID
	tokenID string
	req     protocol.Request
}

type handlerFunc func(ctx context.Context, c *call) (any, error)

type handler struct {
	fn    handlerFunc
	codes codeTable
	// anonymous handlers run without an authenticated user.
	anonymous bool
	// serialized handlers run under the coordinator lock.
	serialized bool
}

// Coordinator validates and applies requests against the room store, the
// user directory and the plugin registry. Requests that touch room state
// run one at a time, and the events they cause are queued before the next
// one starts, so every member sees room events in acceptance order.
type Coordinator struct {
	mu sync.Mutex

	rooms       *room.Store
	directory   *identity.Directory
	plugins     *plugin.Registry
	connections Connections
	logger      *slog.Logger

	fanoutThreshold uint64
	handlers        map[protocol.Action]handler
}

// Handle runs one request and returns the frame answering it: a Response,
// or an ErrorResponse when no specific code applies.
func (c *Coordinator) Handle(ctx context.Context, connID protocol.ConnectionID, req protocol.Request) protocol.Outbound {
	h, exist := c.handlers[req.Type]
	if !exist {
		return c.errorResponse(req, ErrUnknownAction)
	}

	cl := &call{connID: connID, req: req}
	if userID, tokenID, ok := c.connections.Identity(connID); ok {
		cl.userID, cl.tokenID = userID, tokenID
	}

	if !h.anonymous {
		if cl.userID == "" {
			return c.errorResponse(req, ErrUnauthenticated)
		}
		if _, err := c.directory.Touch(ctx, cl.userID); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return c.errorResponse(req, ErrUnauthenticated)
			}
			return c.errorResponse(req, err)
		}
	}

	if h.serialized {
		c.mu.Lock()
		defer c.mu.Unlock()
	}

	data, err := h.fn(ctx, cl)
	if err == nil {
		return protocol.Response{
			AwaitID:     req.AwaitID,
			RequestType: req.Type,
			Data:        data,
			Errors:      []string{},
		}
	}

	if codes := h.codes.codes(err); len(codes) > 0 {
		return protocol.Response{
			AwaitID:     req.AwaitID,
			RequestType: req.Type,
			Errors:      codes,
		}
	}
	return c.errorResponse(req, err)
}

func (c *Coordinator) errorResponse(req protocol.Request, err error) protocol.ErrorResponse {
	resp := protocol.ErrorResponse{
		AwaitID:     req.AwaitID,
		RequestType: req.Type,
	}

	switch {
	case errors.Is(err, ErrMalformedBody):
		resp.Code, resp.Message = protocol.StatusMalformed, "malformed request body"
	case errors.Is(err, ErrUnauthenticated):
		resp.Code, resp.Message = protocol.StatusUnauthenticated, "login required"
	case errors.Is(err, ErrUnknownAction):
		resp.Code, resp.Message = protocol.StatusUnknownAction, "unknown action"
	default:
		c.logger.Error("request failed",
			slog.String("type", string(req.Type)),
			slog.String("awaitId", req.AwaitID),
			slog.Any("err", err),
		)
		resp.Code, resp.Message = protocol.StatusInternal, "internal error"
	}
	return resp
}

// Disconnect releases what a departed connection held: its session and,
// when it was the user's last connection, its room seats.
func (c *Coordinator) Disconnect(departure connection.Departure) {
	if departure.TokenID != "" {
		c.directory.EndSession(departure.TokenID)
	}
	if departure.UserID == "" || !departure.LastForUser {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, left := range c.rooms.LeaveAll(departure.UserID) {
		c.emitUserLeft(left)
	}
	c.logger.Debug("user went offline", slog.String("userId", departure.UserID))
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Join(ErrMalformedBody, err)
	}
	return nil
}

func (c *Coordinator) register(action protocol.Action, h handler) {
	c.handlers[action] = h
}

type NewCoordinatorParams struct {
	fx.In

	Rooms       *room.Store
	Directory   *identity.Directory
	Plugins     *plugin.Registry
	Connections Connections
	Config      *variables.Config
	Logger      *slog.Logger
}

func NewCoordinator(params NewCoordinatorParams) *Coordinator {
	c := &Coordinator{
		rooms:           params.Rooms,
		directory:       params.Directory,
		plugins:         params.Plugins,
		connections:     params.Connections,
		logger:          params.Logger,
		fanoutThreshold: params.Config.FanoutParallelThreshold,
		handlers:        make(map[protocol.Action]handler),
	}

	c.register(protocol.ActionUserRegister, handler{fn: c.userRegister, codes: userRegisterCodes, anonymous: true})
	c.register(protocol.ActionUserLogin, handler{fn: c.userLogin, codes: userLoginCodes, anonymous: true})
	c.register(protocol.ActionUserUpdate, handler{fn: c.userUpdate, codes: userUpdateCodes, serialized: true})

	c.register(protocol.ActionRoomCreate, handler{fn: c.roomCreate, codes: roomCreateCodes, serialized: true})
	c.register(protocol.ActionRoomJoin, handler{fn: c.roomJoin, codes: roomJoinCodes, serialized: true})
	c.register(protocol.ActionRoomLeave, handler{fn: c.roomLeave, codes: roomLeaveCodes, serialized: true})
	c.register(protocol.ActionRoomGet, handler{fn: c.roomGet, codes: roomGetCodes, serialized: true})
	c.register(protocol.ActionPluginSet, handler{fn: c.pluginSet, codes: pluginSetCodes, serialized: true})

	c.register(protocol.ActionMessageRelay, handler{fn: c.messageRelay, codes: messageRelayCodes, serialized: true})
	c.register(protocol.ActionRoomBroadcast, handler{fn: c.roomBroadcast, serialized: true})

	return c
}
