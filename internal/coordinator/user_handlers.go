package coordinator

import (
	"context"
	"log/slog"

	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

type userRegisterData struct {
	DisplayName string `json:"displayName"`
}

type userRegisterResult struct {
	User   identity.User `json:"user"`
	Secret string        `json:"secret"`
	Token  string        `json:"token"`
}

func (c *Coordinator) userRegister(ctx context.Context, cl *call) (any, error) {
	var data userRegisterData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	user, secret, err := c.directory.Register(ctx, data.DisplayName)
	if err != nil {
		return nil, err
	}

	session, err := c.directory.StartSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if err := c.bind(cl, session); err != nil {
		return nil, err
	}

	return userRegisterResult{User: session.User, Secret: secret, Token: session.Token}, nil
}

type userLoginData struct {
	Secret string `json:"secret"`
}

type userLoginResult struct {
	User  identity.User `json:"user"`
	Token string        `json:"token"`
}

func (c *Coordinator) userLogin(ctx context.Context, cl *call) (any, error) {
	var data userLoginData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	session, err := c.directory.Login(ctx, data.Secret)
	if err != nil {
		return nil, err
	}
	if err := c.bind(cl, session); err != nil {
		return nil, err
	}

	return userLoginResult{User: session.User, Token: session.Token}, nil
}

// bind authenticates the calling connection and releases the identity it
// held before: its session always, its room seats when that user has no
// other connection left.
func (c *Coordinator) bind(cl *call, session *identity.Session) error {
	prev, err := c.connections.Bind(cl.connID, session.User.ID, session.TokenID)
	if err != nil {
		c.directory.EndSession(session.TokenID)
		return err
	}
	c.Disconnect(prev)

	c.logger.Debug("connection authenticated",
		slog.String("connId", cl.connID),
		slog.String("userId", session.User.ID),
	)
	return nil
}

type userUpdateData struct {
	DisplayName *string `json:"displayName"`
	Status      *string `json:"status"`
}

type userUpdateResult struct {
	User    identity.User `json:"user"`
	Changed []string      `json:"changed"`
}

func (c *Coordinator) userUpdate(ctx context.Context, cl *call) (any, error) {
	var data userUpdateData
	if err := decode(cl.req.Data, &data); err != nil {
		return nil, err
	}

	user, changed, err := c.directory.Update(ctx, cl.userID, identity.UserPatch{
		DisplayName: data.DisplayName,
		Status:      data.Status,
	})
	if err != nil {
		return nil, err
	}

	result := userUpdateResult{User: user, Changed: changed}
	if len(changed) == 0 {
		return result, nil
	}

	for _, r := range c.rooms.RoomsOf(user.ID) {
		c.emit(r.ID, r.Others(user.ID), protocol.EventUserDataChanged, result)
	}
	return result, nil
}
