// Package repository holds the gorm-backed stores for saved characters and
// user accounts.
package repository

import (
	"context"

	"companion-chat/backend/internal/models"

	"gorm.io/gorm"
)

// CharacterRepository is the append-only store of user-created characters
type CharacterRepository interface {
	Create(ctx context.Context, character *models.Character) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Character, error)
}

// GormCharacterRepository implements CharacterRepository on PostgreSQL
type GormCharacterRepository struct {
	db *gorm.DB
}

// NewCharacterRepository creates a gorm-backed character repository
func NewCharacterRepository(db *gorm.DB) *GormCharacterRepository {
	return &GormCharacterRepository{db: db}
}

// Create inserts a new character row
func (r *GormCharacterRepository) Create(ctx context.Context, character *models.Character) error {
	return r.db.WithContext(ctx).Create(character).Error
}

// ListByOwner returns the owner's characters, newest first
func (r *GormCharacterRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Character, error) {
	var characters []models.Character
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&characters).Error
	if err != nil {
		return nil, err
	}
	return characters, nil
}
