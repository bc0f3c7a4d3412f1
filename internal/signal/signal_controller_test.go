package signal

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	echo "github.com/labstack/echo/v4"
	"github.com/romashorodok/conferencing-platform/internal/connection"
	"github.com/romashorodok/conferencing-platform/internal/coordinator"
	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, configure ...func(*variables.Config)) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := &variables.Config{
		AwaitTimeout:            5 * time.Second,
		TokenTTL:                time.Hour,
		SecretHashCost:          bcrypt.MinCost,
		ConnectionBufferSize:    64,
		MaxProtocolViolations:   10,
		PingPeriod:              27 * time.Second,
		PongWait:                30 * time.Second,
		WriteWait:               10 * time.Second,
		MaxFrameSize:            1 << 20,
		DeleteEmptyRooms:        true,
		RoomMaxUsersLimit:       64,
		FanoutParallelThreshold: 512,
	}
	for _, fn := range configure {
		fn(config)
	}

	tokens, err := identity.NewTokenService(identity.NewTokenServiceParams{Config: config})
	require.NoError(t, err)

	registry := connection.NewRegistry(connection.NewRegistryParams{Config: config, Logger: logger})
	coord := coordinator.NewCoordinator(coordinator.NewCoordinatorParams{
		Rooms: room.NewStore(room.NewStoreParams{Config: config, Logger: logger}),
		Directory: identity.NewDirectory(identity.NewDirectoryParams{
			Store:  identity.NewMemoryUserStore(),
			Tokens: tokens,
			Config: config,
			Logger: logger,
		}),
		Plugins:     plugin.NewRegistry(plugin.NewRegistryParams{Store: plugin.NewMemoryStore(), Logger: logger}),
		Connections: registry,
		Config:      config,
		Logger:      logger,
	})
	registry.OnUnregister(coord.Disconnect)

	router := echo.New()
	ctrl := NewSignalController(newSignalControllerParams{
		Registry:    registry,
		Coordinator: coord,
		Correlator:  NewCorrelator(NewCorrelatorParams{Config: config, Logger: logger}),
		Config:      config,
		Logger:      logger,
	})
	require.NoError(t, ctrl.Resolve(router))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/signal/v1/ws"
}

type testClient struct {
	t       *testing.T
	conn    *websocket.Conn
	backlog []map[string]any
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testClient{t: t, conn: conn}
}

func (c *testClient) read() (map[string]any, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frame map[string]any
	err := c.conn.ReadJSON(&frame)
	return frame, err
}

// request sends a frame and returns the answer carrying awaitID. Frames
// received meanwhile are kept in the backlog.
func (c *testClient) request(requestType, awaitID string, data any) map[string]any {
	c.t.Helper()

	require.NoError(c.t, c.conn.WriteJSON(map[string]any{
		"type":    requestType,
		"awaitId": awaitID,
		"data":    data,
	}))

	for {
		frame, err := c.read()
		require.NoError(c.t, err)

		kind := frame["kind"]
		if (kind == "response" || kind == "error") && frame["awaitId"] == awaitID {
			return frame
		}
		c.backlog = append(c.backlog, frame)
	}
}

// next returns the first frame of the given kind, from the backlog or the
// socket.
func (c *testClient) next(kind string) map[string]any {
	c.t.Helper()

	for i, frame := range c.backlog {
		if frame["kind"] == kind {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return frame
		}
	}
	for {
		frame, err := c.read()
		require.NoError(c.t, err)
		if frame["kind"] == kind {
			return frame
		}
		c.backlog = append(c.backlog, frame)
	}
}

func (c *testClient) register(name string) string {
	c.t.Helper()

	resp := c.request("user_register", "register", map[string]any{"displayName": name})
	require.Equal(c.t, []any{}, resp["errors"])
	return resp["data"].(map[string]any)["user"].(map[string]any)["id"].(string)
}

func TestSignal_RelayBetweenPeers(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t)

	alice := dial(t, url)
	bob := dial(t, url)
	aliceID := alice.register("Alice")
	bobID := bob.register("Bob")

	created := alice.request("room_create", "create", map[string]any{"name": "standup", "maxUsers": 2})
	req.Equal([]any{}, created["errors"])
	roomID := created["data"].(map[string]any)["id"].(string)

	req.Equal([]any{}, alice.request("room_join", "join", map[string]any{"roomId": roomID})["errors"])
	req.Equal([]any{}, bob.request("room_join", "join", map[string]any{"roomId": roomID})["errors"])

	joined := alice.next("event")
	req.Equal("user_joined", joined["type"])
	req.Equal(roomID, joined["roomId"])

	ack := alice.request("message_relay", "offer-1", map[string]any{
		"roomId":    roomID,
		"senderId":  bobID,
		"relayData": map[string]any{"type": "offer", "sdp": "v=0"},
	})
	req.Equal([]any{}, ack["errors"])
	req.Equal("message_relay", ack["requestType"])
	req.Equal([]any{bobID}, ack["data"].(map[string]any)["delivered"])

	relay := bob.next("relay")
	req.Equal(aliceID, relay["senderId"])
	req.Equal(roomID, relay["roomId"])
	req.Equal("offer-1", relay["awaitId"])
	req.Equal(map[string]any{"type": "offer", "sdp": "v=0"}, relay["relayData"])

	for _, frame := range alice.backlog {
		req.NotEqual("relay", frame["kind"])
	}
}

func TestSignal_ErrorsKeepConnectionOpen(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t)

	client := dial(t, url)

	resp := client.request("room_join", "join", map[string]any{"roomId": "missing"})
	req.Equal("error", resp["kind"])
	req.Equal(float64(401), resp["code"])

	client.register("Alice")

	resp = client.request("room_join", "join-2", map[string]any{"roomId": "missing"})
	req.Equal([]any{"does_not_exist"}, resp["errors"])

	resp = client.request("room_teleport", "teleport", map[string]any{})
	req.Equal("error", resp["kind"])
	req.Equal(float64(404), resp["code"])

	req.NoError(client.conn.WriteJSON(map[string]any{"type": "room_get", "data": map[string]any{}}))
	frame := client.next("error")
	req.Equal(float64(400), frame["code"])
	req.Equal("awaitId is required", frame["message"])

	resp = client.request("room_get", "get", map[string]any{"roomId": "missing"})
	req.Equal([]any{"does_not_exist"}, resp["errors"])
}

func TestSignal_ClosesAfterRepeatedViolations(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t, func(c *variables.Config) {
		c.MaxProtocolViolations = 3
	})

	client := dial(t, url)
	for i := 0; i < 3; i++ {
		req.NoError(client.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	}

	var errorFrames int
	for {
		frame, err := client.read()
		if err != nil {
			req.True(websocket.IsCloseError(err, websocket.ClosePolicyViolation), "unexpected error %v", err)
			break
		}
		req.Equal("error", frame["kind"])
		errorFrames++
	}
	req.Equal(3, errorFrames)
}

func TestSignal_DisconnectFreesSeat(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t)

	alice := dial(t, url)
	bob := dial(t, url)
	carol := dial(t, url)
	alice.register("Alice")
	bobID := bob.register("Bob")
	carol.register("Carol")

	roomID := alice.request("room_create", "create", map[string]any{"name": "pair", "maxUsers": 2})["data"].(map[string]any)["id"].(string)
	alice.request("room_join", "join", map[string]any{"roomId": roomID})
	bob.request("room_join", "join", map[string]any{"roomId": roomID})

	resp := carol.request("room_join", "join", map[string]any{"roomId": roomID})
	req.Equal([]any{"already_full"}, resp["errors"])

	req.NoError(bob.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = bob.conn.Close()

	var left map[string]any
	for left == nil {
		frame := alice.next("event")
		if frame["type"] == "user_left" {
			left = frame
		}
	}
	req.Equal(bobID, left["data"].(map[string]any)["userId"])

	resp = carol.request("room_join", "join-again", map[string]any{"roomId": roomID})
	req.Equal([]any{}, resp["errors"])
}

func TestSignal_TimedOutRequestAnswersGatewayTimeout(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t, func(c *variables.Config) {
		c.AwaitTimeout = 20 * time.Millisecond
		c.SecretHashCost = 13
	})

	client := dial(t, url)

	resp := client.request("user_register", "slow", map[string]any{"displayName": "Alice"})
	req.Equal("error", resp["kind"])
	req.Equal(float64(504), resp["code"])
	req.Equal("user_register", resp["requestType"])

	// The late answer is dropped.
	_, err := client.read()
	req.Error(err)
}

func TestSignal_RejectsPendingAwaitID(t *testing.T) {
	req := require.New(t)
	url := newTestServer(t, func(c *variables.Config) {
		c.SecretHashCost = 12
	})

	client := dial(t, url)

	req.NoError(client.conn.WriteJSON(map[string]any{
		"type":    "user_register",
		"awaitId": "dup",
		"data":    map[string]any{"displayName": "Alice"},
	}))
	req.NoError(client.conn.WriteJSON(map[string]any{
		"type":    "room_get",
		"awaitId": "dup",
		"data":    map[string]any{"roomId": "missing"},
	}))

	frames := make(map[string]map[string]any)
	for len(frames) < 2 {
		frame, err := client.read()
		req.NoError(err)
		frames[frame["kind"].(string)] = frame
	}

	collision := frames["error"]
	req.Equal(float64(409), collision["code"])
	req.Equal("dup", collision["awaitId"])
	req.Equal("room_get", collision["requestType"])

	registered := frames["response"]
	req.Equal("dup", registered["awaitId"])
	req.Equal("user_register", registered["requestType"])
	req.Equal([]any{}, registered["errors"])

	// The id is free again once answered.
	resp := client.request("room_get", "dup", map[string]any{"roomId": "missing"})
	req.Equal([]any{"does_not_exist"}, resp["errors"])
}
