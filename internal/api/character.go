package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"companion-chat/backend/internal/models"
	"companion-chat/backend/internal/service"
	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CharacterStore is what the handler needs from the character service
type CharacterStore interface {
	Save(ctx context.Context, character *models.Character, ownerID string) error
	ListByOwner(ctx context.Context, ownerID string) []models.Character
}

// CharacterHandler serves presets and saved characters
type CharacterHandler struct {
	store  CharacterStore
	logger *logger.Logger
}

// NewCharacterHandler creates a new character handler
func NewCharacterHandler(store CharacterStore, logger *logger.Logger) *CharacterHandler {
	return &CharacterHandler{store: store, logger: logger}
}

// ListPresets returns the built-in characters
func (h *CharacterHandler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, service.Presets())
}

// ListCharacters returns the caller's saved characters, newest first. A
// storage failure yields an empty list.
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	ownerID := c.GetString("userId")
	c.JSON(http.StatusOK, h.store.ListByOwner(c.Request.Context(), ownerID))
}

// SaveCharacter stores a new character for the caller. Failures are reported
// as {success:false, error} so the form can show them inline.
func (h *CharacterHandler) SaveCharacter(c *gin.Context) {
	var character models.Character
	if err := c.ShouldBindJSON(&character); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
		return
	}

	ownerID := c.GetString("userId")
	if err := h.store.Save(c.Request.Context(), &character, ownerID); err != nil {
		switch {
		case stderrors.Is(err, service.ErrInvalidCharacter):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		case stderrors.Is(err, service.ErrOwnerRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
		default:
			logger.FromGin(c).LogError(err, "Error saving character")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to save character"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "character": character})
}

// RejectSave renders a save request refused before it reaches SaveCharacter
// in the same {success:false, error} shape
func RejectSave(c *gin.Context, err *errors.AppError) {
	c.JSON(err.StatusCode, gin.H{"success": false, "error": err.Message})
}
