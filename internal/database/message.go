package database

import (
	"context"

	"github.com/thereayou/voxus/internal/models"
)

func (d *Database) SaveMessage(ctx context.Context, message *models.Message) error {
	return d.db.WithContext(ctx).Create(message).Error
}

func (d *Database) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	if err := d.db.WithContext(ctx).First(&message, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "get message "+id)
	}
	return &message, nil
}

// GetRoomMessages последние limit сообщений комнаты (или приватного треда)
func (d *Database) GetRoomMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// GetUndeliveredMessages недоставленные приватные сообщения в порядке создания
func (d *Database) GetUndeliveredMessages(ctx context.Context, recipient string) ([]models.Message, error) {
	var messages []models.Message

	err := d.db.WithContext(ctx).
		Where("recipient = ? AND is_private = ? AND delivered = ?", recipient, true, false).
		Order("created_at ASC").
		Find(&messages).Error

	return messages, err
}

func (d *Database) SetDelivered(ctx context.Context, id string, delivered bool) error {
	res := d.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("delivered", delivered)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(ErrNotFound, "set delivered "+id)
	}
	return nil
}

// MarkThreadRead отмечает прочитанными сообщения треда, адресованные recipient
func (d *Database) MarkThreadRead(ctx context.Context, threadID, recipient string) (int64, error) {
	res := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("room_id = ? AND recipient = ? AND is_read = ?", threadID, recipient, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// UpdateReactions сохраняет обе карты реакций одной записью
func (d *Database) UpdateReactions(ctx context.Context, message *models.Message) error {
	res := d.db.WithContext(ctx).
		Model(message).
		Select("reactions", "user_reactions").
		Updates(message)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(ErrNotFound, "update reactions "+message.ID)
	}
	return nil
}
