package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCharacter() Character {
	return Character{
		Name:        "Mia",
		Age:         24,
		Description: "Barista who paints on weekends",
		Appearance:  "short black hair, freckles",
	}
}

func TestCharacterValidate(t *testing.T) {
	c := validCharacter()
	assert.NoError(t, c.Validate())

	c.Age = 17
	err := c.Validate()
	assert.True(t, errors.Is(err, ErrUnderage))

	c.Age = MinimumAge
	assert.NoError(t, c.Validate())
}

func TestCharacterValidateReportsEveryMissingField(t *testing.T) {
	c := Character{Age: 30}
	err := c.Validate()

	assert.ErrorIs(t, err, ErrMissingName)
	assert.ErrorIs(t, err, ErrMissingDescription)
	assert.ErrorIs(t, err, ErrMissingAppearance)
	assert.False(t, errors.Is(err, ErrUnderage))
}

func TestCharacterApplyDefaults(t *testing.T) {
	c := validCharacter()
	c.Name = "Mia Rose"
	c.ApplyDefaults()

	assert.Equal(t, DefaultPersonality, c.Personality)
	assert.Equal(t, "https://ui-avatars.com/api/?name=Mia+Rose&background=random", c.AvatarURL)

	c = validCharacter()
	c.Personality = "shy"
	c.AvatarURL = "https://cdn.example.com/mia.png"
	c.ApplyDefaults()
	assert.Equal(t, "shy", c.Personality)
	assert.Equal(t, "https://cdn.example.com/mia.png", c.AvatarURL)
}

func TestMessageIsModelImage(t *testing.T) {
	assert.True(t, Message{Role: RoleModel, Type: TypeImage}.IsModelImage())
	assert.False(t, Message{Role: RoleUser, Type: TypeImage}.IsModelImage())
	assert.False(t, Message{Role: RoleModel, Type: TypeText}.IsModelImage())
}
