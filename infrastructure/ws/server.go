// Package ws exposes the gateway over websockets: one read pump and one write
// pump per connection.
package ws

import (
	"chat-gateway/auth"
	"chat-gateway/errors"
	"chat-gateway/gateway"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	DefaultMaxMessageSize = 64 * 1024
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
)

type Config struct {
	MaxMessageSize int64
	AllowedOrigins []string
	WriteWait      time.Duration
	PongWait       time.Duration
}

// Handler authenticates and joins the caller before upgrading, so a rejected
// credential is answered with a plain HTTP status.
type Handler struct {
	log      *slog.Logger
	gateway  *gateway.Gateway
	upgrader websocket.Upgrader
	config   Config
}

func NewHandler(log *slog.Logger, gw *gateway.Gateway, config Config) *Handler {
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaultWriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = defaultPongWait
	}
	policy := newOriginPolicy(log, config.AllowedOrigins)
	return &Handler{
		log:     log,
		gateway: gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		config: config,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	credential, err := auth.BearerFromRequest(r)
	if err != nil {
		http.Error(w, errors.Message(err), errors.HTTPStatus(err))
		return
	}
	conn, err := h.gateway.Connect(r.Context(), credential)
	if err != nil {
		http.Error(w, errors.Message(err), errors.HTTPStatus(err))
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the request.
		h.gateway.Disconnect(conn, err)
		return
	}

	s := &session{
		log:     h.log.With("conn_id", conn.ID(), "user_id", conn.UserID()),
		socket:  socket,
		conn:    conn,
		gateway: h.gateway,
		config:  h.config,
	}
	go s.writePump()
	go h.gateway.Replay(conn)
	s.readPump()
}

type session struct {
	log     *slog.Logger
	socket  *websocket.Conn
	conn    *gateway.Connection
	gateway *gateway.Gateway
	config  Config
}

// readPump handles inbound frames one after the other until the socket fails
// or the gateway closes the connection.
func (s *session) readPump() {
	defer func() {
		s.gateway.Disconnect(s.conn, errors.ErrConnectionClosed)
		_ = s.socket.Close()
	}()

	s.socket.SetReadLimit(s.config.MaxMessageSize)
	_ = s.socket.SetReadDeadline(time.Now().Add(s.config.PongWait))
	s.socket.SetPongHandler(func(string) error {
		return s.socket.SetReadDeadline(time.Now().Add(s.config.PongWait))
	})

	for {
		_, raw, err := s.socket.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}
		err = s.gateway.Handle(s.conn, raw)
		if errors.Is(err, errors.ErrAuthentication) || errors.Is(err, errors.ErrConnectionClosed) {
			return
		}
	}
}

func (s *session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn("Frame exceeded maximum size", "limit", s.config.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.log.Debug("Client disconnected")
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		s.log.Debug("Connection closed")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseAbnormalClosure):
		s.log.Warn("Unexpected websocket close", "error", err)
	default:
		s.log.Debug("Websocket read ended", "error", err)
	}
}

// writePump drains the connection's queue. When the gateway closes the queue,
// a close frame carrying the reason is sent.
func (s *session) writePump() {
	ticker := time.NewTicker(s.config.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = s.socket.Close()
	}()

	for {
		select {
		case evt, ok := <-s.conn.Outbound():
			_ = s.socket.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if !ok {
				code, text := closeFrameFor(s.conn.CloseReason())
				_ = s.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
				return
			}
			raw, err := gateway.EncodeEvent(evt)
			if err != nil {
				s.log.Error("Failed to encode event", "event", evt.Name, "error", err)
				continue
			}
			if err := s.socket.WriteMessage(websocket.TextMessage, raw); err != nil {
				s.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = s.socket.SetWriteDeadline(time.Now().Add(s.config.WriteWait))
			if err := s.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func closeFrameFor(reason error) (int, string) {
	switch {
	case errors.Is(reason, errors.ErrAuthentication):
		return websocket.ClosePolicyViolation, "credential expired"
	case errors.Is(reason, errors.ErrSlowConsumer):
		return websocket.ClosePolicyViolation, "too slow"
	case errors.Is(reason, errors.ErrShuttingDown):
		return websocket.CloseGoingAway, "server shutting down"
	default:
		return websocket.CloseNormalClosure, ""
	}
}
