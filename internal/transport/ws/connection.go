package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Connection wraps a gorilla websocket connection for concurrent writers.
type Connection struct {
	id         string
	session    string
	socket     *websocket.Conn
	mu         sync.Mutex
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection tracks socket. An empty session receives every
// notification.
func NewConnection(id, session string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:      id,
		session: session,
		socket:  socket,
	}
	conn.touch()
	return conn
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Session() string {
	return c.session
}

// WriteMessage sends one frame with a write deadline.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.socket.WriteMessage(messageType, data); err != nil {
		return err
	}
	c.touch()
	return nil
}

// ReadMessage receives one frame from the client.
func (c *Connection) ReadMessage() (int, []byte, error) {
	messageType, payload, err := c.socket.ReadMessage()
	if err == nil {
		c.touch()
	}
	return messageType, payload, err
}

// Close sends a close frame with reason and closes the socket once.
func (c *Connection) Close(reason error) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if reason != nil {
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason.Error())
		_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.mu.Unlock()
	}
	return c.socket.Close()
}

func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
