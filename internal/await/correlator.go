// Package await pairs requests with their eventual outcome by correlation id.
//
// Every entry ends in exactly one terminal state: fulfilled, timed out or
// failed because its connection closed. The completion callback runs once,
// outside the correlator lock.
package await

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrAwaitIDInUse     = errors.New("await id already pending for connection")
	ErrEmptyAwaitID     = errors.New("await id is empty")
	ErrTimeout          = errors.New("await timed out")
	ErrConnectionClosed = errors.New("connection closed while awaiting")
)

type State int

const (
	StatePending State = iota
	StateFulfilled
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is delivered to the completion callback. Err is nil only when the
// entry was fulfilled.
type Outcome[T any] struct {
	ConnID    string
	AwaitID   string
	Value     T
	Err       error
	State     State
	CreatedAt time.Time
}

type key struct {
	connID  string
	awaitID string
}

type pending[T any] struct {
	createdAt time.Time
	timer     *time.Timer
	onDone    func(Outcome[T])
}

type Correlator[T any] struct {
	mu      sync.Mutex
	entries map[key]*pending[T]
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewCorrelator[T any](timeout time.Duration, logger *slog.Logger) *Correlator[T] {
	return &Correlator[T]{
		entries: make(map[key]*pending[T]),
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Open records a pending entry. It must be called before the request is
// dispatched so a fast resolution cannot race the registration.
func (c *Correlator[T]) Open(connID, awaitID string, onDone func(Outcome[T])) error {
	if awaitID == "" {
		return ErrEmptyAwaitID
	}

	k := key{connID, awaitID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exist := c.entries[k]; exist {
		return ErrAwaitIDInUse
	}

	p := &pending[T]{
		createdAt: c.now(),
		onDone:    onDone,
	}
	p.timer = time.AfterFunc(c.timeout, func() {
		var zero T
		c.complete(k, zero, ErrTimeout, StateTimedOut)
	})
	c.entries[k] = p
	return nil
}

// Resolve fulfills an entry. It reports false when the entry is unknown or
// already terminal; the value is dropped and logged as a protocol anomaly.
func (c *Correlator[T]) Resolve(connID, awaitID string, value T) bool {
	if c.complete(key{connID, awaitID}, value, nil, StateFulfilled) {
		return true
	}

	c.logger.Warn("dropped response for settled await id",
		slog.String("connId", connID),
		slog.String("awaitId", awaitID),
	)
	return false
}

// FailConnection fails every pending entry of a connection.
func (c *Correlator[T]) FailConnection(connID string) int {
	c.mu.Lock()
	var keys []key
	for k := range c.entries {
		if k.connID == connID {
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()

	var failed int
	for _, k := range keys {
		var zero T
		if c.complete(k, zero, ErrConnectionClosed, StateFailed) {
			failed++
		}
	}
	return failed
}

func (c *Correlator[T]) Pending(connID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for k := range c.entries {
		if k.connID == connID {
			n++
		}
	}
	return n
}

func (c *Correlator[T]) complete(k key, value T, err error, state State) bool {
	c.mu.Lock()
	p, exist := c.entries[k]
	if !exist {
		c.mu.Unlock()
		return false
	}
	delete(c.entries, k)
	c.mu.Unlock()

	p.timer.Stop()

	if p.onDone != nil {
		p.onDone(Outcome[T]{
			ConnID:    k.connID,
			AwaitID:   k.awaitID,
			Value:     value,
			Err:       err,
			State:     state,
			CreatedAt: p.createdAt,
		})
	}
	return true
}
