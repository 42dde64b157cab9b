package hub

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClientClosed is returned by Send once the client's transport is closed.
var ErrClientClosed = errors.New("client connection closed")

// Client represents a single broadcast WebSocket connection.
type Client struct {
	id           string
	socket       *websocket.Conn
	connectedAt  time.Time
	writeTimeout time.Duration

	// gorilla connections support one concurrent writer
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newClient(id string, socket *websocket.Conn, connectedAt time.Time, writeTimeout time.Duration) *Client {
	return &Client{
		id:           id,
		socket:       socket,
		connectedAt:  connectedAt,
		writeTimeout: writeTimeout,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Send writes text to the browser as a single text frame.
func (c *Client) Send(text string) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.socket.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.socket.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		if c.closed.Load() {
			return ErrClientClosed
		}
		return err
	}
	return nil
}

// Close releases the transport. It does not wait for an in-flight Send and
// is safe to call more than once.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		_ = c.socket.Close()
	}
}

func (c *Client) Closed() bool {
	return c.closed.Load()
}

// waitClosed blocks until the transport reports closure. Anything the
// browser sends is discarded; reading is what lets gorilla process close
// and ping frames.
func (c *Client) waitClosed() error {
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return err
		}
	}
}
