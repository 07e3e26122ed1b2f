package secrets

import (
	"context"
	"testing"

	"companion-chat/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "GEMINI_API_KEY", EnvKey(KeyGeminiAPIKey))
	assert.Equal(t, "OPENAI_API_KEY", EnvKey("openai-api.key"))
}

func TestEnvManager(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	m := NewEnvManager(logger.Discard())
	ctx := context.Background()

	value, err := m.GetSecret(ctx, KeyJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = m.GetSecret(ctx, "definitely_not_set_anywhere")
	assert.ErrorIs(t, err, ErrSecretNotFound)
	assert.Equal(t, "fallback", m.GetSecretWithDefault(ctx, "definitely_not_set_anywhere", "fallback"))
}

func TestNewManagerWithoutVault(t *testing.T) {
	m, err := NewManager(VaultConfig{Enabled: false}, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &EnvManager{}, m)
}

func TestNewVaultManagerValidatesConfig(t *testing.T) {
	_, err := NewManager(VaultConfig{Enabled: true, Token: "t"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewManager(VaultConfig{Enabled: true, Address: "http://127.0.0.1:8200"}, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}
