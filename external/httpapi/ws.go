package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Eotel/live-graphic-recorder/internal/metrics"
	"github.com/Eotel/live-graphic-recorder/internal/session"
)

const maxInboundMessageBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect from a separate origin during development;
	// identity is established by the token, not the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsSender serializes writes to one websocket connection. gorilla/websocket
// allows at most one concurrent writer, and broadcast fan-out plus the
// connection's own read loop both send frames.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(frame session.OutboundFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(frame)
}

func (h *Server) handleWebSocket(c *gin.Context) {
	userID := userIDFrom(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxInboundMessageBytes)

	sender := &wsSender{conn: conn}
	sctx := h.router.NewConnection(userID, sender)
	metrics.ActiveConnections.Inc()
	slog.Info("websocket connected", "conn_id", sctx.ConnID, "user_id", userID)

	defer func() {
		metrics.ActiveConnections.Dec()
		h.router.HandleDisconnect(context.Background(), sctx)
		_ = conn.Close()
		slog.Info("websocket disconnected", "conn_id", sctx.ConnID)
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read failed", "conn_id", sctx.ConnID, "error", err)
			}
			return
		}
		switch msgType {
		case websocket.TextMessage:
			h.router.HandleText(c.Request.Context(), sctx, payload)
		case websocket.BinaryMessage:
			h.router.HandleBinary(sctx, payload)
		}
	}
}
