package models

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MinimumAge is the youngest age a character may have
const MinimumAge = 18

// DefaultPersonality is used when a character is created without one
const DefaultPersonality = "Friendly"

var (
	ErrUnderage           = errors.New("character must be 18 or older")
	ErrMissingName        = errors.New("character name is required")
	ErrMissingDescription = errors.New("character description is required")
	ErrMissingAppearance  = errors.New("character appearance is required")
)

// Character is a chat persona, either a shared preset or one saved by a user.
// Saved characters are immutable: they are inserted once and never updated.
type Character struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	OwnerID     string    `json:"-" gorm:"column:user_id;index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Age         int       `json:"age" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Personality string    `json:"personality"`
	Appearance  string    `json:"appearance" gorm:"not null"`
	AvatarURL   string    `json:"avatarUrl" gorm:"column:avatar_url"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// TableName overrides the table name
func (Character) TableName() string {
	return "chat_characters"
}

// BeforeCreate assigns an id when the caller did not provide one
func (c *Character) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// Validate checks the fields every character must carry before it can be
// offered for chat or persisted.
func (c *Character) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrMissingName)
	}
	if strings.TrimSpace(c.Description) == "" {
		errs = append(errs, ErrMissingDescription)
	}
	if strings.TrimSpace(c.Appearance) == "" {
		errs = append(errs, ErrMissingAppearance)
	}
	if c.Age < MinimumAge {
		errs = append(errs, ErrUnderage)
	}
	return errors.Join(errs...)
}

// ApplyDefaults fills optional fields the way the creation form does
func (c *Character) ApplyDefaults() {
	if strings.TrimSpace(c.Personality) == "" {
		c.Personality = DefaultPersonality
	}
	if c.AvatarURL == "" {
		c.AvatarURL = PlaceholderAvatarURL(c.Name)
	}
}

// PlaceholderAvatarURL returns a generated initials avatar for name
func PlaceholderAvatarURL(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
