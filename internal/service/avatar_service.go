package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/pkg/logger"
)

var (
	ErrAppearanceRequired = errors.New("appearance is required to generate an avatar")
	ErrAvatarUnavailable  = errors.New("avatar generation failed")
)

// AvatarService generates profile pictures for new characters
type AvatarService struct {
	images conversation.ImageModel
	log    *logger.Logger
}

// NewAvatarService creates an avatar service
func NewAvatarService(images conversation.ImageModel, log *logger.Logger) *AvatarService {
	return &AvatarService{images: images, log: log.WithComponent("avatars")}
}

// GenerateAvatar renders a head-and-shoulders portrait from appearance
func (s *AvatarService) GenerateAvatar(ctx context.Context, appearance string) (*conversation.Media, error) {
	if strings.TrimSpace(appearance) == "" {
		return nil, ErrAppearanceRequired
	}

	media, err := s.images.GenerateImage(ctx, conversation.BuildAvatarPrompt(appearance))
	if err == nil && (media == nil || len(media.Data) == 0) {
		err = errors.New("image model returned no image data")
	}
	if err != nil {
		logger.FromContext(ctx, s.log).LogError(err, "Avatar generation failed")
		return nil, fmt.Errorf("%w: %w", ErrAvatarUnavailable, err)
	}

	return media, nil
}
