package secrets

import (
	"context"
	"errors"
	"os"
	"strings"

	"companion-chat/backend/pkg/logger"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// Well-known secret keys. Each falls back to the upper-cased env variable.
const (
	KeyGeminiAPIKey = "gemini_api_key"
	KeyOpenAIAPIKey = "openai_api_key"
	KeyJWTSecret    = "jwt_secret"
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// NewManager returns a Vault-backed manager when Vault is enabled and an
// environment-only manager otherwise.
func NewManager(cfg VaultConfig, log *logger.Logger) (Manager, error) {
	if !cfg.Enabled {
		return NewEnvManager(log), nil
	}
	return NewVaultManager(cfg, log)
}

// EnvManager reads secrets from environment variables only
type EnvManager struct {
	lookup func(string) (string, bool)
	log    *logger.Logger
}

// NewEnvManager creates a manager backed by the process environment
func NewEnvManager(log *logger.Logger) *EnvManager {
	return &EnvManager{lookup: os.LookupEnv, log: log}
}

// GetSecret reads key as an environment variable name
func (m *EnvManager) GetSecret(_ context.Context, key string) (string, error) {
	value, ok := m.lookup(EnvKey(key))
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *EnvManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

// EnvKey converts a secret key such as "gemini-api.key" to GEMINI_API_KEY
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}
