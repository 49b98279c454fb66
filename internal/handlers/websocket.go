package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereayou/voxus/internal/middleware"
	ws "github.com/thereayou/voxus/internal/websocket"
)

// WebSocketHandler управляет WebSocket соединениями
type WebSocketHandler struct {
	ctx        context.Context
	hub        *ws.Hub
	handler    ws.EventHandler
	upgrader   websocket.Upgrader
	bufferSize int
	log        *slog.Logger
}

// NewWebSocketHandler ctx живёт, пока живёт сервер; allowedOrigin пустой значит любой
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub, handler ws.EventHandler, allowedOrigin string, bufferSize int, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:        ctx,
		hub:        hub,
		handler:    handler,
		bufferSize: bufferSize,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigin),
		},
	}
}

func checkOrigin(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" {
			return true
		}
		return r.Header.Get("Origin") == allowed
	}
}

// HandleWebSocket обрабатывает WebSocket соединения
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	username := middleware.Username(c)
	if username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "username", username, "error", err)
		return
	}

	client := ws.NewClient(conn, username, h.bufferSize, h.log)
	h.hub.Add(client)

	go client.WritePump()
	go client.ReadPump(h.ctx, h.handler)
}
