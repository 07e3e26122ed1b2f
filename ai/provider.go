package ai

import (
	"context"
	"fmt"
	"strings"

	"companion-chat/backend/internal/conversation"
)

// Provider names accepted by NewProvider
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures a model provider
type ProviderConfig struct {
	Provider     string
	GeminiAPIKey string
	OpenAIAPIKey string
	Names        ModelNames
}

// Models groups the three capabilities the orchestrator needs
type Models struct {
	Chat   conversation.ChatModel
	Images conversation.ImageModel
	Speech conversation.SpeechModel
}

// NewProvider builds the model clients for cfg.Provider
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Models, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Names)
		if err != nil {
			return nil, err
		}
		return &Models{Chat: client, Images: client, Speech: client}, nil

	case ProviderOpenAI:
		client, err := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Names)
		if err != nil {
			return nil, err
		}
		return &Models{Chat: client, Images: client, Speech: client}, nil
	}

	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}
