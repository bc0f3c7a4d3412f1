package service

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"go.uber.org/fx"
)

type iceServers_Params struct {
	fx.In

	Config *variables.Config
	Logger *slog.Logger
}

var iceSchemes = []string{"stun:", "stuns:", "turn:", "turns:"}

// iceServers builds the configuration clients use for their peer
// connections. TURN urls get the configured credentials.
func iceServers(params iceServers_Params) ([]webrtc.ICEServer, error) {
	var stun, turn []string
	for _, raw := range params.Config.ICEServers {
		url := strings.TrimSpace(raw)
		if url == "" {
			continue
		}

		switch {
		case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
			stun = append(stun, url)
		case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
			turn = append(turn, url)
		default:
			return nil, fmt.Errorf("%w: ice server %q must start with one of %v", variables.ErrInvalidConfig, url, iceSchemes)
		}
	}

	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       params.Config.ICEUsername,
			Credential:     params.Config.ICECredential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}

	params.Logger.Debug("ice servers configured", slog.Int("stun", len(stun)), slog.Int("turn", len(turn)))
	return servers, nil
}

type iceController struct {
	servers []webrtc.ICEServer
}

type iceServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func (ctrl *iceController) IceControllerServerList(c echo.Context) error {
	return c.JSON(http.StatusOK, iceServersResponse{ICEServers: ctrl.servers})
}

func (ctrl *iceController) Resolve(router *echo.Echo) error {
	router.GET("/rtc/ice-servers", ctrl.IceControllerServerList)
	return nil
}

var _ protocol.HttpResolvable = (*iceController)(nil)

type iceController_Params struct {
	fx.In

	Servers []webrtc.ICEServer
}

func newIceController(params iceController_Params) *iceController {
	servers := params.Servers
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	return &iceController{servers: servers}
}

var WebrtcModule = fx.Module("webrtc",
	fx.Provide(
		iceServers,
		protocol.AsHttpController(newIceController),
	),
)
