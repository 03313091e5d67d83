package ws

import (
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"liveness-playground/internal/domain/notify"
	"liveness-playground/internal/platform/logging"
)

// Hub tracks notification clients and fans notifications out to them.
type Hub struct {
	logger  *logging.Logger
	clients sync.Map // map[string]*Connection
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{logger: logger}
}

func (h *Hub) Register(conn *Connection) {
	if conn == nil {
		return
	}
	h.clients.Store(conn.ID(), conn)
}

func (h *Hub) Unregister(id string) {
	if id == "" {
		return
	}
	h.clients.Delete(id)
}

// Broadcast sends n to every client of n.Session, or to all clients when
// n.Session is empty. Clients without a session only see global
// notifications. Clients that fail to receive are dropped.
func (h *Hub) Broadcast(n notify.Notification) {
	data, err := sonic.Marshal(n)
	if err != nil {
		h.logger.ErrorTag("WS", "encode notification: %v", err)
		return
	}

	h.clients.Range(func(key, value any) bool {
		conn, ok := value.(*Connection)
		if !ok {
			return true
		}
		if n.Session != "" && conn.Session() != n.Session {
			return true
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.WarnTag("WS", "dropping client %s: %v", conn.ID(), err)
			_ = conn.Close(nil)
			h.clients.Delete(key)
		}
		return true
	})
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll(reason error) {
	if reason == nil {
		reason = ErrHubShutdown
	}
	h.clients.Range(func(key, value any) bool {
		if conn, ok := value.(*Connection); ok {
			_ = conn.Close(reason)
		}
		h.clients.Delete(key)
		return true
	})
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	n := 0
	h.clients.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}
