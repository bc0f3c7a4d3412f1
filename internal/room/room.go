package room

import (
	"maps"
	"slices"
	"time"

	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/samber/lo"
)

// Room is a snapshot of room state. The Store never hands out its own
// instances, so callers cannot mutate rooms behind its back.
type Room struct {
	ID          protocol.RoomID          `json:"id"`
	Name        string                   `json:"name"`
	MaxUsers    int                      `json:"maxUsers"`
	JoinedUsers []protocol.UserID        `json:"joinedUsers"`
	AdminUsers  []protocol.UserID        `json:"adminUsers"`
	Metadata    map[string]any           `json:"metadata"`
	ParentRoom  *protocol.RoomID         `json:"parentRoom,omitempty"`
	ChildRooms  []protocol.RoomID        `json:"childRooms"`
	Plugins     map[string]plugin.Plugin `json:"plugins"`
	OwnerID     protocol.UserID          `json:"ownerId"`
	HasPassword bool                     `json:"hasPassword"`
	IsAdminRoom bool                     `json:"isAdminRoom"`
	CreatedAt   time.Time                `json:"createdAt"`

	password string
	adminID  string
}

// AdminID is the privileged join secret of an admin room. It is only ever
// returned to the creator.
func (r Room) AdminID() string {
	return r.adminID
}

func (r Room) IsMember(userID protocol.UserID) bool {
	return lo.Contains(r.JoinedUsers, userID)
}

func (r Room) IsAdmin(userID protocol.UserID) bool {
	return lo.Contains(r.AdminUsers, userID)
}

// Others returns the members except userID.
func (r Room) Others(userID protocol.UserID) []protocol.UserID {
	return lo.Without(r.JoinedUsers, userID)
}

func (r *Room) clone() Room {
	c := *r
	c.JoinedUsers = slices.Clone(r.JoinedUsers)
	c.AdminUsers = slices.Clone(r.AdminUsers)
	c.ChildRooms = slices.Clone(r.ChildRooms)
	c.Metadata = maps.Clone(r.Metadata)
	c.Plugins = maps.Clone(r.Plugins)
	if r.ParentRoom != nil {
		parent := *r.ParentRoom
		c.ParentRoom = &parent
	}
	if c.JoinedUsers == nil {
		c.JoinedUsers = []protocol.UserID{}
	}
	if c.AdminUsers == nil {
		c.AdminUsers = []protocol.UserID{}
	}
	if c.ChildRooms == nil {
		c.ChildRooms = []protocol.RoomID{}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if c.Plugins == nil {
		c.Plugins = map[string]plugin.Plugin{}
	}
	return c
}
