package services

import (
	"context"
	"time"

	"github.com/thereayou/voxus/internal/models"
)

type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserOnline(ctx context.Context, username, connectionID string, at time.Time) error
	SetUserOffline(ctx context.Context, username string, at time.Time) error
}

type RoomStore interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	EnsureRoom(ctx context.Context, room *models.Room) (*models.Room, error)
	AddRoomMember(ctx context.Context, roomID, username string) (*models.Room, error)
}

type MessageStore interface {
	SaveMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)
	GetUndeliveredMessages(ctx context.Context, recipient string) ([]models.Message, error)
	SetDelivered(ctx context.Context, id string, delivered bool) error
	MarkThreadRead(ctx context.Context, threadID, recipient string) (int64, error)
	UpdateReactions(ctx context.Context, message *models.Message) error
}

// Store персистентное хранилище, которым пользуется ядро чата
type Store interface {
	UserStore
	RoomStore
	MessageStore
}
