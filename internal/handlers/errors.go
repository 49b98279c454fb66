package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/chat"
)

// writeChatError переводит ошибку ядра чата в HTTP-ответ
func writeChatError(c *gin.Context, err error) {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusBadRequest
	switch chatErr.Kind {
	case chat.KindRoomNotFound, chat.KindMessageNotFound, chat.KindUnknownUser:
		status = http.StatusNotFound
	case chat.KindForbidden:
		status = http.StatusForbidden
	case chat.KindUnauthenticated:
		status = http.StatusUnauthorized
	case chat.KindStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": chatErr.Detail, "kind": chatErr.Kind})
}
