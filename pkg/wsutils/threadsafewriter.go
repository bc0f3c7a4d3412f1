package wsutils

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ThreadSafeWriter serializes writes on a gorilla connection, which supports
// only one concurrent writer.
type ThreadSafeWriter struct {
	*websocket.Conn
	sync.Mutex

	writeWait time.Duration
}

func (t *ThreadSafeWriter) WriteText(payload []byte) error {
	t.Lock()
	defer t.Unlock()

	t.setWriteDeadline()
	return t.Conn.WriteMessage(websocket.TextMessage, payload)
}

func (t *ThreadSafeWriter) Ping() error {
	t.Lock()
	defer t.Unlock()

	return t.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeWait))
}

// CloseWith sends a close frame before closing the underlying connection.
func (t *ThreadSafeWriter) CloseWith(code int, reason string) error {
	t.Lock()
	_ = t.Conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(t.writeWait),
	)
	t.Unlock()

	return t.Conn.Close()
}

func (t *ThreadSafeWriter) setWriteDeadline() {
	if t.writeWait > 0 {
		_ = t.Conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	}
}

func NewThreadSafeWriter(conn *websocket.Conn, writeWait time.Duration) *ThreadSafeWriter {
	return &ThreadSafeWriter{
		Conn:      conn,
		writeWait: writeWait,
	}
}
