package plugin

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"go.uber.org/fx"
)

type pluginController struct {
	registry *Registry
}

type pluginListResponse struct {
	Plugins []Plugin `json:"plugins"`
}

func (ctrl *pluginController) PluginList(c echo.Context) error {
	plugins, err := ctrl.registry.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pluginListResponse{Plugins: plugins})
}

func (ctrl *pluginController) PluginGet(c echo.Context) error {
	p, err := ctrl.registry.Get(c.Request().Context(), c.Param("pluginId"))
	switch {
	case errors.Is(err, ErrPluginNotFound):
		return c.JSON(http.StatusNotFound, protocol.HttpErrorResponse{Message: err.Error()})
	case err != nil:
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (ctrl *pluginController) Resolve(router *echo.Echo) error {
	router.GET("/plugins", ctrl.PluginList)
	router.GET("/plugins/:pluginId", ctrl.PluginGet)
	return nil
}

var _ protocol.HttpResolvable = (*pluginController)(nil)

type newPluginControllerParams struct {
	fx.In

	Registry *Registry
}

func NewPluginController(params newPluginControllerParams) *pluginController {
	return &pluginController{registry: params.Registry}
}
