package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/internal/service"
	"companion-chat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// AvatarGenerator renders a portrait from an appearance description
type AvatarGenerator interface {
	GenerateAvatar(ctx context.Context, appearance string) (*conversation.Media, error)
}

// GenerateAvatarRequest is the body of POST /avatars
type GenerateAvatarRequest struct {
	Appearance string `json:"appearance" binding:"required"`
}

// AvatarHandler serves avatar generation
type AvatarHandler struct {
	avatars AvatarGenerator
}

// NewAvatarHandler creates a new avatar handler
func NewAvatarHandler(avatars AvatarGenerator) *AvatarHandler {
	return &AvatarHandler{avatars: avatars}
}

// GenerateAvatar returns {avatarUrl} holding the portrait as a data URL
func (h *AvatarHandler) GenerateAvatar(c *gin.Context) {
	var req GenerateAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Appearance is required").WithDetails(err.Error()))
		return
	}

	media, err := h.avatars.GenerateAvatar(c.Request.Context(), req.Appearance)
	if err != nil {
		if stderrors.Is(err, service.ErrAppearanceRequired) {
			c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Appearance is required"))
			return
		}
		c.Error(errors.NewBadGatewayError(errors.CodeImageUnavailable, "Could not generate an avatar").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatarUrl": media.DataURL()})
}
