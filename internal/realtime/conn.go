package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flutterbye/platform/internal/identity"
	"github.com/flutterbye/platform/internal/shared"
)

// State tracks a connection through its lifecycle.
type State int32

// Connection states.
const (
	StateOpening State = iota
	StateOpen
	StateClosing
	StateClosed
	StateErrored
)

// frameWriter is the transport half a connection writes to. The websocket
// handler supplies the real socket; tests supply a recorder.
type frameWriter interface {
	WriteFrame(v any) error
	Close() error
}

// Conn is one live realtime socket and its subscriptions. Outbound frames
// flow through a bounded buffer drained by a dedicated writer goroutine, so
// a slow subscriber never stalls broadcast to the others.
type Conn struct {
	ID       string
	Identity *identity.Identity // nil for anonymous connections

	writer frameWriter
	send   chan any

	state        atomic.Int32
	lastActivity atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, actor *identity.Identity, writer frameWriter, bufferSize int) *Conn {
	c := &Conn{
		ID:       id,
		Identity: actor,
		writer:   writer,
		send:     make(chan any, bufferSize),
		done:     make(chan struct{}),
	}
	c.state.Store(int32(StateOpening))
	c.Touch(time.Now())
	return c
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Touch records activity on the connection.
func (c *Conn) Touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

// LastActivity returns the time of the last observed activity.
func (c *Conn) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// open transitions Opening -> Open and starts the writer.
func (c *Conn) open() {
	if c.state.CompareAndSwap(int32(StateOpening), int32(StateOpen)) {
		go c.writeLoop()
	}
}

// enqueue offers a frame to the connection without blocking. Frames for
// connections past Open, and frames that do not fit the buffer, are dropped.
func (c *Conn) enqueue(frame any) error {
	if c.State() != StateOpen {
		return shared.ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errBufferFull
	}
}

// close transitions the connection out of Open exactly once and releases the
// writer goroutine. Safe to call from any goroutine, any number of times.
func (c *Conn) close(final State) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		close(c.done)
		c.state.Store(int32(final))
		_ = c.writer.Close()
	})
}

func (c *Conn) writeLoop() {
	for {
		select {
		case frame := <-c.send:
			if err := c.writer.WriteFrame(frame); err != nil {
				c.close(StateErrored)
				return
			}
		case <-c.done:
			return
		}
	}
}

// outbound is the server->client frame shape.
type outbound struct {
	Type       string          `json:"type"`
	ClientID   string          `json:"clientId,omitempty"`
	ServerTime string          `json:"serverTime,omitempty"`
	Topic      string          `json:"topic,omitempty"`
	Event      string          `json:"event,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	From       string          `json:"from,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
