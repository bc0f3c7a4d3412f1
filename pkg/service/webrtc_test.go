package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v4"
	webrtc "github.com/pion/webrtc/v4"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/stretchr/testify/require"
)

func newICEParams(urls ...string) iceServers_Params {
	return iceServers_Params{
		Config: &variables.Config{
			ICEServers:    urls,
			ICEUsername:   "signal",
			ICECredential: "s3cret",
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestIceServers(t *testing.T) {
	t.Run("should split stun and turn urls", func(t *testing.T) {
		req := require.New(t)

		servers, err := iceServers(newICEParams("stun:stun.l.google.com:19302", " turn:turn.local:3478 ", ""))
		req.NoError(err)
		req.Len(servers, 2)

		req.Equal([]string{"stun:stun.l.google.com:19302"}, servers[0].URLs)
		req.Empty(servers[0].Username)

		req.Equal([]string{"turn:turn.local:3478"}, servers[1].URLs)
		req.Equal("signal", servers[1].Username)
		req.Equal("s3cret", servers[1].Credential)
		req.Equal(webrtc.ICECredentialTypePassword, servers[1].CredentialType)
	})

	t.Run("should reject unknown scheme", func(t *testing.T) {
		_, err := iceServers(newICEParams("http://stun.local"))
		require.ErrorIs(t, err, variables.ErrInvalidConfig)
	})
}

func TestIceController(t *testing.T) {
	req := require.New(t)

	servers, err := iceServers(newICEParams("stun:stun.l.google.com:19302"))
	req.NoError(err)

	router := echo.New()
	req.NoError(newIceController(iceController_Params{Servers: servers}).Resolve(router))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rtc/ice-servers", nil))
	req.Equal(http.StatusOK, rec.Code)

	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Len(body.ICEServers, 1)
	req.Equal([]string{"stun:stun.l.google.com:19302"}, body.ICEServers[0].URLs)
}

func TestLogger_Level(t *testing.T) {
	req := require.New(t)

	debug := logger(logger_Params{Config: &variables.Config{LogLevel: "debug"}})
	req.True(debug.Enabled(t.Context(), slog.LevelDebug))

	fallback := logger(logger_Params{Config: &variables.Config{LogLevel: "loud"}})
	req.False(fallback.Enabled(t.Context(), slog.LevelDebug))
	req.True(fallback.Enabled(t.Context(), slog.LevelInfo))
}
