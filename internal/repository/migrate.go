package repository

import (
	"companion-chat/backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables this service owns
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Character{})
}
