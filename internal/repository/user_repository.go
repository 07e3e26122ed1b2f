package repository

import (
	"context"
	"errors"

	"companion-chat/backend/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches
var ErrNotFound = errors.New("record not found")

// UserRepository stores local user accounts
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	TouchLogin(ctx context.Context, user *models.User) error
}

// GormUserRepository implements UserRepository on PostgreSQL
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a gorm-backed user repository
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts the user; the password is hashed by the model hook
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail looks a user up by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByID looks a user up by primary key
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// TouchLogin records the time of a successful login
func (r *GormUserRepository) TouchLogin(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Model(user).Update("last_login", user.LastLogin).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
