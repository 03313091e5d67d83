package ws

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"liveness-playground/internal/platform/logging"
	"liveness-playground/internal/platform/observability"
)

// SessionHeader and SessionQuery name where a client states its session.
const (
	SessionHeader = "X-Session-Id"
	SessionQuery  = "session"
)

// Router upgrades HTTP requests to notification clients.
type Router struct {
	hub          *Hub
	logger       *logging.Logger
	upgrader     *websocket.Upgrader
	pingInterval time.Duration
}

type RouterOptions struct {
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	CheckOrigin      func(r *http.Request) bool
}

func NewRouter(hub *Hub, logger *logging.Logger, opts RouterOptions) *Router {
	if logger == nil {
		logger = logging.Discard()
	}
	timeout := opts.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: timeout,
		CheckOrigin:      opts.CheckOrigin,
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &Router{
		hub:          hub,
		logger:       logger,
		upgrader:     upgrader,
		pingInterval: ping,
	}
}

// Handle upgrades the request and blocks until the client goes away.
func (r *Router) Handle(w http.ResponseWriter, req *http.Request) {
	_, end := observability.StartSpan(req.Context(), "ws", "notifications.connect")

	socket, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		end(err)
		r.logger.WarnTag("WS", "upgrade failed from %s: %v", req.RemoteAddr, err)
		return
	}
	end(nil)

	session := req.URL.Query().Get(SessionQuery)
	if session == "" {
		session = req.Header.Get(SessionHeader)
	}
	conn := NewConnection(uuid.New().String(), session, socket)
	r.hub.Register(conn)
	r.logger.InfoTag("WS", "client %s connected (session=%q)", conn.ID(), session)

	done := make(chan struct{})
	go r.keepAlive(conn, done)

	defer func() {
		close(done)
		r.hub.Unregister(conn.ID())
		_ = conn.Close(nil)
		r.logger.InfoTag("WS", "client %s disconnected", conn.ID())
	}()

	for {
		// Clients only listen; reading drives ping/pong and close handling.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Router) keepAlive(conn *Connection, done <-chan struct{}) {
	ticker := time.NewTicker(r.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
