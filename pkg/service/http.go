package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

type httpServer_Params struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Controllers []protocol.HttpResolvable `group:"http.controller"`
	Config      *variables.Config
	Logger      *slog.Logger
}

func httpErrorHandler(e *echo.Echo, logger *slog.Logger) func(err error, c echo.Context) {
	return func(err error, c echo.Context) {
		logger.Error(err.Error(),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
		)
		e.DefaultHTTPErrorHandler(err, c)
	}
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func httpServer(params httpServer_Params) (*echo.Echo, error) {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = httpErrorHandler(router, params.Logger)

	router.GET("/health", health)
	for _, controller := range params.Controllers {
		if err := controller.Resolve(router); err != nil {
			return nil, err
		}
	}

	addr := fmt.Sprintf(":%s", params.Config.HttpPort)
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					params.Logger.Error("http server stopped", slog.Any("err", err))
				}
			}()
			params.Logger.Info("http server started", slog.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return router.Shutdown(ctx)
		},
	})

	return router, nil
}

var HttpModule = fx.Module("http",
	fx.Provide(httpServer),
	fx.Invoke(func(*echo.Echo) {}),
)
