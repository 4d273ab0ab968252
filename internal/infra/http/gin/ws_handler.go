package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"devlink/internal/infra/realtime"
)

// RealtimeHTTP upgrades clients onto the push channel.
type RealtimeHTTP interface {
	Attach(c *gin.Context)
}

// RealtimeHandler attaches websocket sessions to the hub.
type RealtimeHandler struct {
	Hub    *realtime.Hub
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Attach upgrades the request and registers the connection for push
// delivery. The read loop only services control frames; clients talk to the
// HTTP API, not the socket.
func (h *RealtimeHandler) Attach(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		userID = strings.TrimSpace(c.Query("user_id"))
	}
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
		return
	}
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	conn := realtime.NewConnection(userID, ws)
	h.Hub.Attach(conn)

	go func() {
		defer h.Hub.Detach(conn)
		defer conn.Close(websocket.CloseNormalClosure, "client gone")
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
