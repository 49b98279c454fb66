package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

const MaxMessageLength = 500

type Message struct {
	ID                 string  `gorm:"primaryKey"`
	RoomID             string  `gorm:"not null;index:idx_messages_room_created,priority:1"`
	Sender             string  `gorm:"not null;index"`
	SenderConnectionID string
	Body               string  `gorm:"not null"`
	IsPrivate          bool    `gorm:"not null;default:false;index"`
	Recipient          *string `gorm:"index"`
	Delivered          bool    `gorm:"not null;default:false"`
	Read               bool    `gorm:"column:is_read;not null;default:false"`

	// emoji -> usernames; username -> emoji. Меняются только вместе.
	Reactions     map[string][]string `gorm:"serializer:json"`
	UserReactions map[string]string   `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2"`
}

// RecipientName возвращает получателя или пустую строку
func (m *Message) RecipientName() string {
	if m.Recipient == nil {
		return ""
	}
	return *m.Recipient
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
