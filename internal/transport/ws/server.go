// Package ws provides the live channel server for viewer connections.
package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/hub"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/protocol"
	"github.com/streamreact/companion/internal/service"
)

// eventTimeout bounds the persistence work of a single inbound event.
const eventTimeout = 10 * time.Second

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	service  *service.Service
	metrics  *metrics.Metrics
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, svc *service.Service, m *metrics.Metrics, log *zap.Logger) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		service: svc,
		metrics: m,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.CORSOrigin),
		},
	}
}

func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if allowed == "" || allowed == "*" || origin == "" {
			return true
		}
		for _, o := range strings.Split(allowed, ",") {
			if strings.TrimSpace(o) == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("failed to upgrade websocket", zap.Error(err))
		return err
	}

	// The session and its connection share one ID.
	id := s.service.Sessions().Register()
	conn := s.hub.NewConnectionWithID(id, ws)
	s.hub.Register(conn)
	s.metrics.Connections.Inc()
	s.log.Info("viewer connected", zap.String("session_id", id), zap.String("remote", c.RealIP()))

	ws.SetReadLimit(s.cfg.MaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection. Events from one
// connection are handled one at a time, in arrival order.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		_ = s.service.Dispatch(context.Background(), conn.ID, protocol.Disconnect{})
		s.hub.Unregister(conn)
		conn.Close()
		s.metrics.Connections.Dec()
		s.log.Info("viewer disconnected", zap.String("session_id", conn.ID))
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(s.cfg.ChatRate), s.cfg.ChatBurst)

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket read error", zap.String("session_id", conn.ID), zap.Error(err))
			}
			break
		}
		// Any inbound frame proves the peer is alive.
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.handleMessage(conn, limiter, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Debug("failed to write message", zap.String("session_id", conn.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one frame and hands it to the event pipeline.
func (s *Server) handleMessage(conn *hub.Connection, limiter *rate.Limiter, data []byte) {
	ev, err := protocol.Decode(data)
	if err != nil {
		s.service.Reject(conn.ID, err)
		return
	}

	switch ev.(type) {
	case protocol.ChatSubmit, protocol.DonationSubmit:
		if !limiter.Allow() {
			s.service.Reject(conn.ID, domain.ErrRateLimited)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if err := s.service.Dispatch(ctx, conn.ID, ev); err != nil {
		if service.IsClientError(err) {
			s.log.Debug("event rejected", zap.String("session_id", conn.ID), zap.String("event", ev.EventName()), zap.Error(err))
		} else {
			s.log.Warn("event failed", zap.String("session_id", conn.ID), zap.String("event", ev.EventName()), zap.Error(err))
		}
	}
}
