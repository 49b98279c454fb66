package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/middleware"
	"github.com/thereayou/voxus/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// MessageService история и отправка сообщений комнаты по HTTP
type MessageService interface {
	RoomHistory(ctx context.Context, username, roomID string, limit int) ([]models.Message, error)
	PostMessage(ctx context.Context, username, roomID, body string) (*models.Message, error)
}

type HTTPMessageHandler struct {
	messages MessageService
}

func NewHTTPMessageHandler(messages MessageService) *HTTPMessageHandler {
	return &HTTPMessageHandler{messages: messages}
}

// GetRoomMessages получает историю сообщений комнаты
func (h *HTTPMessageHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("id")

	// Параметры пагинации
	limit := defaultPageSize
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxPageSize {
			limit = parsed
		}
	}

	messages, err := h.messages.RoomHistory(c.Request.Context(), middleware.Username(c), roomID, limit)
	if err != nil {
		writeChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": events.NewMessageViews(messages),
		"has_more": len(messages) == limit,
	})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage отправляет сообщение через HTTP (альтернатива WebSocket)
func (h *HTTPMessageHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.PostMessage(c.Request.Context(), middleware.Username(c), c.Param("id"), req.Content)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, events.NewMessageView(msg))
}
