package room

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"go.uber.org/fx"
)

type roomController struct {
	store *Store
}

type RoomListResponse struct {
	Rooms []Room `json:"rooms"`
}

func (ctrl *roomController) RoomControllerRoomList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, RoomListResponse{
		Rooms: ctrl.store.List(),
	})
}

func (ctrl *roomController) RoomControllerRoomGet(ctx echo.Context) error {
	r, err := ctrl.store.Get(ctx.Param("roomId"))
	switch {
	case errors.Is(err, ErrRoomNotExist):
		return ctx.JSON(http.StatusNotFound, protocol.HttpErrorResponse{Message: err.Error()})
	case err != nil:
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (ctrl *roomController) Resolve(c *echo.Echo) error {
	c.GET("/rooms", ctrl.RoomControllerRoomList)
	c.GET("/rooms/:roomId", ctrl.RoomControllerRoomGet)
	return nil
}

var _ protocol.HttpResolvable = (*roomController)(nil)

type newRoomControllerParams struct {
	fx.In

	Store *Store
}

func NewRoomController(params newRoomControllerParams) *roomController {
	return &roomController{
		store: params.Store,
	}
}
