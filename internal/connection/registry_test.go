package connection

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"github.com/romashorodok/conferencing-platform/pkg/variables"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	written   [][]byte
	pings     int
	closeCode int
	closed    chan struct{}
	failWrite bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{closed: make(chan struct{})}
}

func (f *fakeTransport) WriteText(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, payload)
	return nil
}

func (f *fakeTransport) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeTransport) CloseWith(code int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCode = code
	close(f.closed)
	return nil
}

func (f *fakeTransport) frames(t *testing.T) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]map[string]any, 0, len(f.written))
	for _, raw := range f.written {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(raw, &frame))
		result = append(result, frame)
	}
	return result
}

func newTestRegistry(bufferSize int) *Registry {
	return NewRegistry(NewRegistryParams{
		Config: &variables.Config{ConnectionBufferSize: bufferSize},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRegistry_SendPreservesOrder(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(16)
	transport := newFakeTransport()

	conn := registry.Register(transport)
	for i := 0; i < 5; i++ {
		req.NoError(registry.Send(conn.ID, protocol.Response{
			AwaitID:     string(rune('a' + i)),
			RequestType: protocol.ActionRoomGet,
		}))
	}

	go conn.WritePump(time.Hour)
	req.True(registry.Unregister(conn.ID))

	select {
	case <-transport.closed:
	case <-time.After(time.Second):
		t.Fatal("transport was not closed")
	}

	frames := transport.frames(t)
	req.Len(frames, 5)
	for i, frame := range frames {
		req.Equal("response", frame["kind"])
		req.Equal(string(rune('a'+i)), frame["awaitId"])
		req.Equal([]any{}, frame["errors"])
	}
	req.Equal(websocket.CloseNormalClosure, transport.closeCode)
}

func TestRegistry_SendToUnknownConnection(t *testing.T) {
	registry := newTestRegistry(4)
	err := registry.Send("missing", protocol.Event{Type: protocol.EventUserLeft})
	require.ErrorIs(t, err, ErrConnectionGone)
}

func TestRegistry_FullQueueClosesConnection(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(2)

	conn := registry.Register(newFakeTransport())
	event := protocol.Event{Type: protocol.EventUserJoined, RoomID: "r"}

	req.NoError(registry.Send(conn.ID, event))
	req.NoError(registry.Send(conn.ID, event))
	req.ErrorIs(registry.Send(conn.ID, event), ErrQueueFull)
	req.True(conn.Closed())
	req.ErrorIs(registry.Send(conn.ID, event), ErrConnectionGone)
}

func TestRegistry_BindAndSendToUser(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(4)

	laptop := registry.Register(newFakeTransport())
	phone := registry.Register(newFakeTransport())
	other := registry.Register(newFakeTransport())

	_, err := registry.Bind(laptop.ID, "alice", "token-1")
	req.NoError(err)
	_, err = registry.Bind(phone.ID, "alice", "token-2")
	req.NoError(err)
	_, err = registry.Bind(other.ID, "bob", "token-3")
	req.NoError(err)

	req.Equal(2, registry.SendToUser("alice", protocol.Event{Type: protocol.EventUserJoined}))
	req.Equal(0, registry.SendToUser("carol", protocol.Event{Type: protocol.EventUserJoined}))

	userID, tokenID, ok := registry.Identity(phone.ID)
	req.True(ok)
	req.Equal("alice", userID)
	req.Equal("token-2", tokenID)

	prev, err := registry.Bind(other.ID, "alice", "token-4")
	req.NoError(err)
	req.Equal(Departure{ConnectionID: other.ID, UserID: "bob", TokenID: "token-3", LastForUser: true}, prev)
	req.False(registry.Online("bob"))

	prev, err = registry.Bind(phone.ID, "alice", "token-5")
	req.NoError(err)
	req.Equal(Departure{ConnectionID: phone.ID, TokenID: "token-2"}, prev)
	req.Equal(3, registry.SendToUser("alice", protocol.Event{Type: protocol.EventUserJoined}))

	_, err = registry.Bind("missing", "alice", "token-6")
	req.ErrorIs(err, ErrConnectionGone)
}

func TestRegistry_UnregisterNotifiesListeners(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(4)

	var departures []Departure
	registry.OnUnregister(func(d Departure) {
		departures = append(departures, d)
	})

	anonymous := registry.Register(newFakeTransport())
	laptop := registry.Register(newFakeTransport())
	phone := registry.Register(newFakeTransport())
	_, _ = registry.Bind(laptop.ID, "alice", "token-1")
	_, _ = registry.Bind(phone.ID, "alice", "token-2")

	req.True(registry.Unregister(anonymous.ID))
	req.True(registry.Unregister(laptop.ID))
	req.True(registry.Unregister(phone.ID))
	req.False(registry.Unregister(phone.ID))

	req.Equal([]Departure{
		{ConnectionID: anonymous.ID},
		{ConnectionID: laptop.ID, UserID: "alice", TokenID: "token-1", LastForUser: false},
		{ConnectionID: phone.ID, UserID: "alice", TokenID: "token-2", LastForUser: true},
	}, departures)
	req.Equal(0, registry.Count())
}

func TestConnection_WritePumpStopsOnWriteFailure(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(4)
	transport := newFakeTransport()
	transport.failWrite = true

	conn := registry.Register(transport)
	req.NoError(registry.Send(conn.ID, protocol.Event{Type: protocol.EventUserLeft}))

	done := make(chan struct{})
	go func() {
		conn.WritePump(time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop")
	}
	req.True(conn.Closed())
	req.Equal(websocket.CloseAbnormalClosure, transport.closeCode)
}

func TestConnection_Violations(t *testing.T) {
	conn := newTestRegistry(1).Register(newFakeTransport())
	require.Equal(t, 1, conn.Violation())
	require.Equal(t, 2, conn.Violation())
}
