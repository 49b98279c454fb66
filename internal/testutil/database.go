// Package testutil общие помощники для тестов
package testutil

import (
	"testing"
	"time"

	"github.com/thereayou/voxus/internal/database"
	"github.com/thereayou/voxus/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase in-memory SQLite со схемой. Одно соединение, иначе каждое
// новое соединение пула видит свою пустую базу.
func NewDatabase(t *testing.T) *database.Database {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := database.NewDatabase(gdb)
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateUsers регистрирует пользователей с паролем "password"
func CreateUsers(t *testing.T, db *database.Database, usernames ...string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("cannot hash password: %v", err)
	}
	for _, username := range usernames {
		user := &models.User{
			Username:     username,
			PasswordHash: string(hash),
			CreatedAt:    time.Now(),
		}
		if err := db.SaveUser(t.Context(), user); err != nil {
			t.Fatalf("failed to create user %s: %v", username, err)
		}
	}
}
