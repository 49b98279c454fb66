package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/middleware"
)

// Presence текущий список пользователей с онлайн-статусом
type Presence interface {
	UserList(ctx context.Context) ([]events.UserEntry, error)
	UserEntry(ctx context.Context, username string) (events.UserEntry, error)
}

type UserHandler struct {
	presence Presence
}

func NewUserHandler(presence Presence) *UserHandler {
	return &UserHandler{presence: presence}
}

// GetMe получает текущего пользователя
func (h *UserHandler) GetMe(c *gin.Context) {
	h.writeEntry(c, middleware.Username(c))
}

// GetUser получает пользователя по имени
func (h *UserHandler) GetUser(c *gin.Context) {
	h.writeEntry(c, c.Param("username"))
}

// GetUsers тот же снимок, что рассылается в user_list
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.presence.UserList(c.Request.Context())
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) writeEntry(c *gin.Context, username string) {
	entry, err := h.presence.UserEntry(c.Request.Context(), username)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
