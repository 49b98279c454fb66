package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/middleware"
	"github.com/thereayou/voxus/internal/models"
)

// RoomReader чтение комнат с учётом доступа
type RoomReader interface {
	VisibleRooms(ctx context.Context, username string) ([]models.Room, error)
	RoomHistory(ctx context.Context, username, roomID string, limit int) ([]models.Message, error)
}

// RoomService комнаты от имени пользователя, без WebSocket-соединения
type RoomService interface {
	RoomReader
	Room(ctx context.Context, username, roomID string) (*models.Room, error)
	RoomMembers(ctx context.Context, username, roomID string) ([]events.UserEntry, error)
	CreateRoomAs(ctx context.Context, username, name string, isPrivate bool) (*models.Room, error)
	JoinRoomAs(ctx context.Context, username, roomID string) (*models.Room, error)
	LeaveRoomAs(ctx context.Context, username, roomID string) error
}

type RoomHandler struct {
	rooms RoomService
}

func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

type createRoomRequest struct {
	Name      string `json:"name" binding:"required"`
	IsPrivate bool   `json:"isPrivate"`
}

// CreateRoom создает новую комнату
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoomAs(c.Request.Context(), middleware.Username(c), req.Name, req.IsPrivate)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, events.NewRoomView(room))
}

// GetRooms публичные комнаты и приватные, где пользователь участник
func (h *RoomHandler) GetRooms(c *gin.Context) {
	rooms, err := h.rooms.VisibleRooms(c.Request.Context(), middleware.Username(c))
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": events.NewRoomViews(rooms)})
}

// GetRoom получает информацию о комнате
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.Room(c.Request.Context(), middleware.Username(c), c.Param("id"))
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, events.NewRoomView(room))
}

// GetRoomMembers участники комнаты с онлайн-статусом
func (h *RoomHandler) GetRoomMembers(c *gin.Context) {
	members, err := h.rooms.RoomMembers(c.Request.Context(), middleware.Username(c), c.Param("id"))
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

// JoinRoom добавляет пользователя в участники комнаты
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	room, err := h.rooms.JoinRoomAs(c.Request.Context(), middleware.Username(c), c.Param("id"))
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, events.NewRoomView(room))
}

// LeaveRoom отписывает живую сессию пользователя от канала комнаты
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	if err := h.rooms.LeaveRoomAs(c.Request.Context(), middleware.Username(c), c.Param("id")); err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left room successfully"})
}
