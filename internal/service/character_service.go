package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"companion-chat/backend/internal/models"
	"companion-chat/backend/internal/repository"
	"companion-chat/backend/pkg/cache"
	"companion-chat/backend/pkg/logger"
)

var (
	ErrInvalidCharacter = errors.New("invalid character")
	ErrOwnerRequired    = errors.New("an owner is required to save a character")
)

// CharacterService saves user-created characters and lists them back
type CharacterService struct {
	repo  repository.CharacterRepository
	cache cache.Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewCharacterService creates a character service. A nil store disables
// caching of character lists.
func NewCharacterService(repo repository.CharacterRepository, store cache.Store, ttl time.Duration, log *logger.Logger) *CharacterService {
	if store == nil {
		store = cache.NopStore{}
	}
	return &CharacterService{
		repo:  repo,
		cache: store,
		ttl:   ttl,
		log:   log.WithComponent("characters"),
	}
}

// Save validates the character and inserts it for ownerID. Saved
// characters are never updated afterwards.
func (s *CharacterService) Save(ctx context.Context, character *models.Character, ownerID string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}
	if err := character.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCharacter, err)
	}

	character.ApplyDefaults()
	character.ID = ""
	character.OwnerID = ownerID

	if err := s.repo.Create(ctx, character); err != nil {
		return fmt.Errorf("failed to save character: %w", err)
	}

	if err := s.cache.Delete(ctx, listKey(ownerID)); err != nil {
		logger.FromContext(ctx, s.log).Warn("Failed to invalidate character cache",
			"owner", ownerID,
			"error", err.Error(),
		)
	}
	return nil
}

// ListByOwner returns the owner's characters, newest first. Errors are
// logged and reported as an empty list.
func (s *CharacterService) ListByOwner(ctx context.Context, ownerID string) []models.Character {
	log := logger.FromContext(ctx, s.log)
	key := listKey(ownerID)

	if cached, ok := s.cached(ctx, key); ok {
		for i := range cached {
			cached[i].OwnerID = ownerID
		}
		return cached
	}

	characters, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		log.LogError(err, "Failed to list characters", "owner", ownerID)
		return []models.Character{}
	}
	if characters == nil {
		characters = []models.Character{}
	}

	if b, err := json.Marshal(characters); err == nil {
		if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
			log.Warn("Failed to cache characters", "owner", ownerID, "error", err.Error())
		}
	}
	return characters
}

func (s *CharacterService) cached(ctx context.Context, key string) ([]models.Character, bool) {
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx, s.log).Warn("Character cache read failed", "key", key, "error", err.Error())
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var characters []models.Character
	if err := json.Unmarshal(b, &characters); err != nil {
		return nil, false
	}
	return characters, true
}

func listKey(ownerID string) string {
	return "characters:" + ownerID
}
