package coordinator

import (
	"context"

	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

type roomCreateData struct {
	Name         string           `json:"name"`
	MaxUsers     int              `json:"maxUsers"`
	Password     string           `json:"password"`
	WithAdminID  bool             `json:"withAdminId"`
	ParentRoomID *protocol.RoomID `json:"parentRoomId"`
	Metadata     map[string]any   `json:"metadata"`
}

type roomCreateResult struct {
	room.Room
	AdminID string `json:"adminId,omitempty"`
}

func (c *Coordinator) roomCreate(_ context.Context, cl *call) (any, error) {
	var data roomCreateData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	r, err := c.rooms.Create(room.CreateOption{
		Name:         data.Name,
		MaxUsers:     data.MaxUsers,
		Password:     data.Password,
		WithAdminID:  data.WithAdminID,
		ParentRoomID: data.ParentRoomID,
		Metadata:     data.Metadata,
		OwnerID:      cl.userID,
	})
	if err != nil {
		return nil, err
	}

	return roomCreateResult{Room: r, AdminID: r.AdminID()}, nil
}

type roomJoinData struct {
	RoomID   protocol.RoomID `json:"roomId"`
	Password string          `json:"password"`
	AdminID  *string         `json:"adminId"`
}

type userJoinedEvent struct {
	User    identity.User `json:"user"`
	IsAdmin bool          `json:"isAdmin"`
}

func (c *Coordinator) roomJoin(ctx context.Context, cl *call) (any, error) {
	var data roomJoinData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	user, err := c.directory.Get(ctx, cl.userID)
	if err != nil {
		return nil, err
	}

	joined, err := c.rooms.Join(data.RoomID, cl.userID, room.JoinCredentials{
		Password: data.Password,
		AdminID:  data.AdminID,
	})
	if err != nil {
		return nil, err
	}

	c.emit(joined.Room.ID, joined.Room.Others(cl.userID), protocol.EventUserJoined, userJoinedEvent{
		User:    user,
		IsAdmin: joined.IsAdmin,
	})
	return joined.Room, nil
}

type roomRefData struct {
	RoomID protocol.RoomID `json:"roomId"`
}

type userLeftEvent struct {
	UserID protocol.UserID `json:"userId"`
}

type roomLeaveResult struct {
	RoomID  protocol.RoomID `json:"roomId"`
	Deleted bool            `json:"deleted"`
}

func (c *Coordinator) roomLeave(_ context.Context, cl *call) (any, error) {
	var data roomRefData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	left, err := c.rooms.Leave(data.RoomID, cl.userID)
	if err != nil {
		return nil, err
	}

	c.emitUserLeft(left)
	return roomLeaveResult{RoomID: left.Room.ID, Deleted: left.Deleted}, nil
}

func (c *Coordinator) emitUserLeft(left room.LeaveResult) {
	if left.Deleted {
		return
	}
	c.emit(left.Room.ID, left.Room.JoinedUsers, protocol.EventUserLeft, userLeftEvent{UserID: left.UserID})
}

func (c *Coordinator) roomGet(_ context.Context, cl *call) (any, error) {
	var data roomRefData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}
	return c.rooms.Get(data.RoomID)
}

type pluginSetData struct {
	RoomID   protocol.RoomID  `json:"roomId"`
	IframeID string           `json:"iframeId"`
	PluginID *plugin.PluginID `json:"pluginId"`
}

type pluginSetResult struct {
	RoomID   protocol.RoomID `json:"roomId"`
	IframeID string          `json:"iframeId"`
	Plugin   *plugin.Plugin  `json:"plugin"`
	SetBy    protocol.UserID `json:"setBy"`
}

// pluginSet checks room, slot and admin right before resolving the plugin,
// so a non-admin learns nothing about the catalog.
func (c *Coordinator) pluginSet(ctx context.Context, cl *call) (any, error) {
	var data pluginSetData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	r, err := c.rooms.Get(data.RoomID)
	if err != nil {
		return nil, err
	}
	if data.IframeID == "" {
		return nil, room.ErrMissingIframeID
	}
	if !r.IsAdmin(cl.userID) {
		return nil, room.ErrPermissionDenied
	}

	var p *plugin.Plugin
	if data.PluginID != nil {
		found, err := c.plugins.Get(ctx, *data.PluginID)
		if err != nil {
			return nil, err
		}
		p = &found
	}

	r, err = c.rooms.SetPlugin(data.RoomID, cl.userID, data.IframeID, p)
	if err != nil {
		return nil, err
	}

	result := pluginSetResult{
		RoomID:   r.ID,
		IframeID: data.IframeID,
		Plugin:   p,
		SetBy:    cl.userID,
	}
	c.emit(r.ID, r.JoinedUsers, protocol.EventPluginSet, result)
	return result, nil
}
