package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := NewStore(
		&config.StorageConfig{DatabasePath: filepath.Join(t.TempDir(), "test.db")},
		&config.I18nConfig{DefaultLanguage: "en", Languages: []string{"en", "ru", "id"}},
		logger,
	)
	require.NoError(t, err)
	return store
}

func TestGetConfigMissingReturnsNilNil(t *testing.T) {
	store := newTestStore(t)

	cfg, err := store.GetConfig(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestSaveConfigUpsertAndPartialUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveConfig(ctx, -100, 7, ConfigUpdate{
		EncryptedAPIKey: strPtr("ciphertext"),
		SystemPrompt:    strPtr("be helpful"),
		Model:           strPtr("llama3-70b-8192"),
		IsActive:        boolPtr(true),
	})
	require.NoError(t, err)

	cfg, err := store.GetConfig(ctx, -100)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "ciphertext", cfg.EncryptedAPIKey)
	assert.Equal(t, "be helpful", cfg.SystemPrompt)
	assert.True(t, cfg.IsActive)
	assert.Equal(t, int64(7), cfg.ConfiguredByUserID)
	assert.NotEmpty(t, cfg.LastUpdatedAt)

	// Fresh rows keep the trigger defaults even though the update never
	// mentioned them.
	assert.True(t, cfg.TriggerCommandEnabled)
	assert.True(t, cfg.TriggerMentionEnabled)
	assert.Equal(t, models.ModerationDisabled, cfg.ModerationLevel)

	// Partial update touches only the named field.
	err = store.SaveConfig(ctx, -100, 8, ConfigUpdate{SystemPrompt: strPtr("be terse")})
	require.NoError(t, err)

	cfg, err = store.GetConfig(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, "be terse", cfg.SystemPrompt)
	assert.Equal(t, "ciphertext", cfg.EncryptedAPIKey)
	assert.Equal(t, int64(8), cfg.ConfiguredByUserID)
}

func TestSaveConfigFreshRowStaysInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// The setup dialog saves credential, prompt, model and language and
	// never touches the activation flag.
	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{
		EncryptedAPIKey: strPtr("ciphertext"),
		SystemPrompt:    strPtr("be helpful"),
		Model:           strPtr("llama3-70b-8192"),
		LanguageCode:    strPtr("en"),
	}))

	cfg, err := store.GetConfig(ctx, -100)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.False(t, cfg.IsActive, "fresh rows start inactive")

	// A later partial update must not flip it either.
	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{SystemPrompt: strPtr("be terse")}))
	cfg, err = store.GetConfig(ctx, -100)
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)
}

func TestSaveConfigEmptyUpdateIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{}))

	cfg, err := store.GetConfig(ctx, -100)
	require.NoError(t, err)
	assert.Nil(t, cfg, "empty update must not create a row")
}

func TestSaveConfigClearsPrefixWithEmptyString(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{TriggerCustomPrefix: strPtr("!ai")}))
	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{TriggerCustomPrefix: strPtr("")}))

	cfg, err := store.GetConfig(ctx, -100)
	require.NoError(t, err)
	assert.Empty(t, cfg.TriggerCustomPrefix)
}

func TestDeleteConfigSoftDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveConfig(ctx, -100, 7, ConfigUpdate{
		EncryptedAPIKey: strPtr("ciphertext"),
		SystemPrompt:    strPtr("be helpful"),
		Model:           strPtr("llama3-70b-8192"),
		IsActive:        boolPtr(true),
		LanguageCode:    strPtr("ru"),
		WelcomeEnabled:  boolPtr(true),
	}))
	require.NoError(t, store.AppendHistory(ctx, -100, models.RoleUser, "hi"))

	require.NoError(t, store.DeleteConfig(ctx, -100, 9))

	cfg, err := store.GetConfig(ctx, -100)
	require.NoError(t, err)
	require.NotNil(t, cfg, "soft delete keeps the row")
	assert.Empty(t, cfg.EncryptedAPIKey)
	assert.Empty(t, cfg.SystemPrompt)
	assert.False(t, cfg.IsActive)
	assert.False(t, cfg.WelcomeEnabled)
	assert.Equal(t, "ru", cfg.LanguageCode, "language survives a reset")
	assert.Equal(t, "llama3-70b-8192", cfg.Model, "model survives a reset")

	history, err := store.GetHistory(ctx, -100, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1, "history survives a reset")
}

func TestHistoryLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		require.NoError(t, store.AppendHistory(ctx, -100, role, fmt.Sprintf("turn %d", i)))
	}

	history, err := store.GetHistory(ctx, -100, 10)
	require.NoError(t, err)
	require.Len(t, history, 10)

	// The newest ten turns, oldest first.
	assert.Equal(t, "turn 5", history[0].Content)
	assert.Equal(t, "turn 14", history[9].Content)
}

func TestHistoryIsolatedPerGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendHistory(ctx, -1, models.RoleUser, "group one"))
	require.NoError(t, store.AppendHistory(ctx, -2, models.RoleUser, "group two"))

	require.NoError(t, store.ClearHistory(ctx, -1))

	h1, err := store.GetHistory(ctx, -1, 10)
	require.NoError(t, err)
	assert.Empty(t, h1)

	h2, err := store.GetHistory(ctx, -2, 10)
	require.NoError(t, err)
	assert.Len(t, h2, 1)
}

func TestGroupLanguageFallbacks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "en", store.GetGroupLanguage(ctx, -100), "unconfigured group uses the default")

	require.NoError(t, store.SetGroupLanguage(ctx, -100, 7, "ru"))
	assert.Equal(t, "ru", store.GetGroupLanguage(ctx, -100))

	require.NoError(t, store.SetGroupLanguage(ctx, -100, 7, "xx"))
	assert.Equal(t, "en", store.GetGroupLanguage(ctx, -100), "unknown code falls back to the default")
}

func TestUserLanguagePreference(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Empty(t, store.GetUserLanguage(ctx, 5), "no preference stored")

	require.NoError(t, store.SetUserLanguage(ctx, 5, "id"))
	assert.Equal(t, "id", store.GetUserLanguage(ctx, 5))

	require.NoError(t, store.SetUserLanguage(ctx, 5, "ru"))
	assert.Equal(t, "ru", store.GetUserLanguage(ctx, 5), "preference is replaced, not duplicated")
}
