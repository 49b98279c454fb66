package database

import (
	"context"
	"fmt"
	"time"

	"github.com/thereayou/voxus/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *Database) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := models.User{}
	if err := d.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "find user "+username)
	}
	return &user, nil
}

// ListUsers все зарегистрированные пользователи по имени
func (d *Database) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := d.db.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetUserOnline отмечает пользователя онлайн с текущим соединением
func (d *Database) SetUserOnline(ctx context.Context, username, connectionID string, at time.Time) error {
	return d.updateUser(ctx, username, map[string]any{
		"is_online":     true,
		"connection_id": connectionID,
		"last_seen_at":  at,
	})
}

// SetUserOffline снимает онлайн-флаг и очищает соединение
func (d *Database) SetUserOffline(ctx context.Context, username string, at time.Time) error {
	return d.updateUser(ctx, username, map[string]any{
		"is_online":     false,
		"connection_id": nil,
		"last_seen_at":  at,
	})
}

func (d *Database) updateUser(ctx context.Context, username string, fields map[string]any) error {
	res := d.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update user %s: %w", username, ErrNotFound)
	}
	return nil
}
