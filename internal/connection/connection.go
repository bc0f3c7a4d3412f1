package connection

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
	"go.uber.org/atomic"
)

var (
	ErrConnectionGone = errors.New("connection gone")
	ErrQueueFull      = errors.New("outbound queue full")
)

// Transport is the write side of a websocket. wsutils.ThreadSafeWriter
// implements it.
type Transport interface {
	WriteText(payload []byte) error
	Ping() error
	CloseWith(code int, reason string) error
}

type closeReason struct {
	code   int
	reason string
}

// Connection is one live client socket. Frames are queued by Enqueue and
// written by WritePump in submission order.
type Connection struct {
	ID protocol.ConnectionID

	transport Transport
	logger    *slog.Logger
	send      chan []byte

	identityMu sync.RWMutex
	userID     protocol.UserID
	tokenID    string

	violations *atomic.Int32
	lastSeen   *atomic.Int64

	closeOnce sync.Once
	closeWith closeReason
	done      chan struct{}
}

// Enqueue never blocks. A connection that cannot keep up is closed.
func (c *Connection) Enqueue(frame protocol.Outbound) error {
	payload, err := protocol.Marshal(frame)
	if err != nil {
		return err
	}
	return c.EnqueueRaw(payload)
}

func (c *Connection) EnqueueRaw(payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.logger.Warn("outbound queue full, closing connection", slog.String("connId", c.ID))
		c.Close(websocket.CloseTryAgainLater, "slow consumer")
		return ErrQueueFull
	}
}

// Close is idempotent. The writer flushes queued frames before the close
// frame goes out.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeWith = closeReason{code: code, reason: reason}
		close(c.done)
	})
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Violation counts a protocol violation and returns the running total.
func (c *Connection) Violation() int {
	return int(c.violations.Inc())
}

func (c *Connection) Touch(at time.Time) {
	c.lastSeen.Store(at.UnixNano())
}

func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Connection) Identity() (protocol.UserID, string, bool) {
	c.identityMu.RLock()
	defer c.identityMu.RUnlock()
	return c.userID, c.tokenID, c.userID != ""
}

func (c *Connection) setIdentity(userID protocol.UserID, tokenID string) (prevUser protocol.UserID, prevToken string) {
	c.identityMu.Lock()
	defer c.identityMu.Unlock()

	prevUser, prevToken = c.userID, c.tokenID
	c.userID, c.tokenID = userID, tokenID
	return prevUser, prevToken
}

// WritePump drains the queue and keeps the peer alive with pings until the
// connection is closed or a write fails.
func (c *Connection) WritePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if err := c.transport.WriteText(payload); err != nil {
				c.logger.Debug("write failed", slog.String("connId", c.ID), slog.Any("err", err))
				c.Close(websocket.CloseAbnormalClosure, "write failed")
				_ = c.transport.CloseWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}

		case <-ticker.C:
			if err := c.transport.Ping(); err != nil {
				c.logger.Debug("ping failed", slog.String("connId", c.ID), slog.Any("err", err))
				c.Close(websocket.CloseAbnormalClosure, "ping failed")
				_ = c.transport.CloseWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}

		case <-c.done:
			c.flush()
			_ = c.transport.CloseWith(c.closeWith.code, c.closeWith.reason)
			return
		}
	}
}

func (c *Connection) flush() {
	for {
		select {
		case payload := <-c.send:
			if err := c.transport.WriteText(payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func newConnection(id protocol.ConnectionID, transport Transport, bufferSize int, logger *slog.Logger) *Connection {
	return &Connection{
		ID:         id,
		transport:  transport,
		logger:     logger,
		send:       make(chan []byte, bufferSize),
		violations: atomic.NewInt32(0),
		lastSeen:   atomic.NewInt64(time.Now().UnixNano()),
		done:       make(chan struct{}),
	}
}
