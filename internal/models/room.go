package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"slices"
	"time"
)

// GlobalRoomID комната, которая существует всегда
const GlobalRoomID = "global"

const (
	RoomNameMinLen = 2
	RoomNameMaxLen = 30
)

type Room struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	IsPrivate bool      `gorm:"not null;default:false;index"`
	CreatedBy string    `gorm:"not null;index"`
	Members   []string  `gorm:"serializer:json"`
	CreatedAt time.Time
}

// HasMember проверяет, состоит ли пользователь в комнате
func (r *Room) HasMember(username string) bool {
	return slices.Contains(r.Members, username)
}

// CanAccess читать и писать можно в публичную комнату или если ты участник
func (r *Room) CanAccess(username string) bool {
	return !r.IsPrivate || r.HasMember(username)
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
