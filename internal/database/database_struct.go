package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound документ не найден
var ErrNotFound = errors.New("record not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// notFound переводит gorm.ErrRecordNotFound в ErrNotFound, остальное оборачивает
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
