package database

import (
	"context"
	"errors"

	"github.com/thereayou/voxus/internal/models"
	"gorm.io/gorm"
)

func (d *Database) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Members == nil {
		room.Members = []string{}
	}
	return d.db.WithContext(ctx).Create(room).Error
}

func (d *Database) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := d.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "get room "+id)
	}
	return &room, nil
}

// ListRooms все комнаты, новые первыми
func (d *Database) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := d.db.WithContext(ctx).Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// EnsureRoom возвращает комнату по ID, создавая её при отсутствии
func (d *Database) EnsureRoom(ctx context.Context, room *models.Room) (*models.Room, error) {
	existing, err := d.GetRoom(ctx, room.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := d.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// AddRoomMember добавляет участника, если его ещё нет. Одна запись на комнату.
func (d *Database) AddRoomMember(ctx context.Context, roomID, username string) (*models.Room, error) {
	var room models.Room
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&room, "id = ?", roomID).Error; err != nil {
			return notFound(err, "get room "+roomID)
		}
		if room.HasMember(username) {
			return nil
		}

		room.Members = append(room.Members, username)
		return tx.Model(&room).Select("members").Updates(&room).Error
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}
