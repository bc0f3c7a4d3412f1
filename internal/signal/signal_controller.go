package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/internal/await"
	"github.com/romashorodok/conferencing-platform/internal/connection"
	"github.com/romashorodok/conferencing-platform/internal/coordinator"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/romashorodok/conferencing-platform/pkg/wsutils"
	"go.uber.org/fx"
)

type Correlator = await.Correlator[protocol.Outbound]

const _INBOX_SIZE = 16

type signalController struct {
	upgrader    websocket.Upgrader
	registry    *connection.Registry
	coordinator *coordinator.Coordinator
	correlator  *Correlator
	config      *variables.Config
	logger      *slog.Logger
}

func (ctrl *signalController) SignalControllerConnect(ctx echo.Context) error {
	conn, err := ctrl.upgrader.Upgrade(ctx.Response().Writer, ctx.Request(), nil)
	if err != nil {
		ctrl.logger.Error(fmt.Sprintf("Unable upgrade request %s", ctx.Request().RemoteAddr))
		return err
	}

	conn.SetReadLimit(ctrl.config.MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(ctrl.config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ctrl.config.PongWait))
	})

	c := ctrl.registry.Register(wsutils.NewThreadSafeWriter(conn, ctrl.config.WriteWait))
	go c.WritePump(ctrl.config.PingPeriod)

	inbox := make(chan protocol.Request, _INBOX_SIZE)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		ctrl.dispatch(ctx.Request().Context(), c, inbox)
	}()

	defer func() {
		c.Close(websocket.CloseNormalClosure, "")
		close(inbox)
		<-dispatched

		failed := ctrl.correlator.FailConnection(c.ID)
		ctrl.registry.Unregister(c.ID)
		ctrl.logger.Debug("signal connection closed", slog.String("connId", c.ID), slog.Int("failed_awaits", failed))
	}()

	ctrl.logger.Debug("signal connection opened", slog.String("connId", c.ID), slog.String("remote", ctx.Request().RemoteAddr))

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ctrl.logger.Debug("signal read failed", slog.String("connId", c.ID), slog.Any("err", err))
			}
			return nil
		}
		_ = conn.SetReadDeadline(time.Now().Add(ctrl.config.PongWait))

		req, ok := ctrl.accept(c, payload)
		if !ok {
			if c.Closed() {
				return nil
			}
			continue
		}

		select {
		case inbox <- req:
		case <-c.Done():
			return nil
		}
	}
}

// accept decodes a frame, stamps it and opens its await entry before the
// request is queued for dispatch.
func (ctrl *signalController) accept(c *connection.Connection, payload []byte) (protocol.Request, bool) {
	var req protocol.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		ctrl.logger.Warn("malformed frame", slog.String("connId", c.ID), slog.Any("err", err))
		ctrl.violation(c, protocol.ErrorResponse{
			Code:    protocol.StatusMalformed,
			Message: "malformed frame",
		})
		return req, false
	}

	req.Timestamp = time.Now().UnixMilli()
	req.SocketID = c.ID

	requestType := req.Type
	err := ctrl.correlator.Open(c.ID, req.AwaitID, func(outcome await.Outcome[protocol.Outbound]) {
		ctrl.complete(c, requestType, outcome)
	})
	switch {
	case errors.Is(err, await.ErrEmptyAwaitID):
		ctrl.logger.Warn("frame without await id", slog.String("connId", c.ID), slog.String("type", string(req.Type)))
		ctrl.violation(c, protocol.ErrorResponse{
			RequestType: req.Type,
			Code:        protocol.StatusMalformed,
			Message:     "awaitId is required",
		})
		return req, false
	case errors.Is(err, await.ErrAwaitIDInUse):
		ctrl.logger.Warn("await id collision", slog.String("connId", c.ID), slog.String("awaitId", req.AwaitID))
		ctrl.violation(c, protocol.ErrorResponse{
			AwaitID:     req.AwaitID,
			RequestType: req.Type,
			Code:        protocol.StatusAwaitIDInUse,
			Message:     "awaitId is already pending",
		})
		return req, false
	case err != nil:
		ctrl.logger.Error("unable open await", slog.String("connId", c.ID), slog.Any("err", err))
		return req, false
	}
	return req, true
}

// dispatch runs the requests of one connection in arrival order.
func (ctrl *signalController) dispatch(ctx context.Context, c *connection.Connection, inbox <-chan protocol.Request) {
	for req := range inbox {
		if c.Closed() {
			continue
		}

		c.Touch(time.Now())
		out := ctrl.coordinator.Handle(ctx, c.ID, req)
		ctrl.correlator.Resolve(c.ID, req.AwaitID, out)

		if e, isError := out.(protocol.ErrorResponse); isError {
			if e.Code == protocol.StatusMalformed || e.Code == protocol.StatusUnknownAction {
				ctrl.count(c)
			}
		}
	}
}

func (ctrl *signalController) complete(c *connection.Connection, requestType protocol.Action, outcome await.Outcome[protocol.Outbound]) {
	var frame protocol.Outbound
	switch outcome.State {
	case await.StateFulfilled:
		frame = outcome.Value
	case await.StateTimedOut:
		ctrl.logger.Warn("request timed out", slog.String("connId", c.ID), slog.String("awaitId", outcome.AwaitID))
		frame = protocol.ErrorResponse{
			AwaitID:     outcome.AwaitID,
			RequestType: requestType,
			Code:        protocol.StatusTimeout,
			Message:     "request timed out",
		}
	default:
		return
	}

	if err := c.Enqueue(frame); err != nil {
		ctrl.logger.Debug("unable deliver response", slog.String("connId", c.ID), slog.Any("err", err))
	}
}

func (ctrl *signalController) violation(c *connection.Connection, frame protocol.ErrorResponse) {
	_ = c.Enqueue(frame)
	ctrl.count(c)
}

// count closes the connection once it reaches the violation limit.
func (ctrl *signalController) count(c *connection.Connection) {
	if n := c.Violation(); n >= ctrl.config.MaxProtocolViolations {
		ctrl.logger.Warn("closing abusive connection", slog.String("connId", c.ID), slog.Int("violations", n))
		c.Close(websocket.ClosePolicyViolation, "too many protocol violations")
	}
}

func (ctrl *signalController) Resolve(router *echo.Echo) error {
	router.GET("/signal/v1/ws", ctrl.SignalControllerConnect)
	return nil
}

var _ protocol.HttpResolvable = (*signalController)(nil)

type newSignalControllerParams struct {
	fx.In

	Registry    *connection.Registry
	Coordinator *coordinator.Coordinator
	Correlator  *Correlator
	Config      *variables.Config
	Logger      *slog.Logger
}

func NewSignalController(params newSignalControllerParams) *signalController {
	return &signalController{
		registry:    params.Registry,
		coordinator: params.Coordinator,
		correlator:  params.Correlator,
		config:      params.Config,
		logger:      params.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type NewCorrelatorParams struct {
	fx.In

	Config *variables.Config
	Logger *slog.Logger
}

func NewCorrelator(params NewCorrelatorParams) *Correlator {
	return await.NewCorrelator[protocol.Outbound](params.Config.AwaitTimeout, params.Logger)
}
