package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/handlers"
)

type Handlers struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	Rooms    *handlers.RoomHandler
	Messages *handlers.HTTPMessageHandler
	WS       *handlers.WebSocketHandler
	HTTPAuth gin.HandlerFunc
	WSAuth   gin.HandlerFunc
}

func APIEndpoints(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Auth endpoints
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
	}

	// API endpoints
	api := r.Group("/api", h.HTTPAuth)
	{
		api.GET("/users", h.Users.GetUsers)
		api.GET("/users/me", h.Users.GetMe)
		api.GET("/users/:username", h.Users.GetUser)

		api.GET("/rooms", h.Rooms.GetRooms)
		api.POST("/rooms", h.Rooms.CreateRoom)
		api.GET("/rooms/:id", h.Rooms.GetRoom)
		api.GET("/rooms/:id/members", h.Rooms.GetRoomMembers)
		api.POST("/rooms/:id/join", h.Rooms.JoinRoom)
		api.POST("/rooms/:id/leave", h.Rooms.LeaveRoom)

		api.GET("/rooms/:id/messages", h.Messages.GetRoomMessages)
		api.POST("/rooms/:id/messages", h.Messages.SendMessage)
	}

	r.GET("/ws", h.WSAuth, h.WS.HandleWebSocket)
}
