package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulya2402/Wisedebot/internal/config"
)

func writeMessages(t *testing.T, dir, lang, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, lang+".json"), []byte(content), 0644)
	require.NoError(t, err)
}

func newTestLocalizer(t *testing.T) *Localizer {
	t.Helper()
	dir := t.TempDir()
	writeMessages(t, dir, "en", `{
		"language_name": "English",
		"greeting": "Hello, {{.Name}}!",
		"plain": "A plain message",
		"english_only": "Only in English"
	}`)
	writeMessages(t, dir, "ru", `{
		"language_name": "Русский",
		"greeting": "Привет, {{.Name}}!",
		"plain": "Простое сообщение"
	}`)

	loc, err := NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "ru"},
		Directory:       dir,
	})
	require.NoError(t, err)
	return loc
}

func TestGetLocalizesPerLanguage(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.Equal(t, "Hello, Ann!", loc.Get("en", "greeting", map[string]interface{}{"Name": "Ann"}))
	assert.Equal(t, "Привет, Ann!", loc.Get("ru", "greeting", map[string]interface{}{"Name": "Ann"}))
}

func TestGetUnknownLanguageFallsBackToDefault(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.Equal(t, "A plain message", loc.Get("fr", "plain", nil))
}

func TestGetMissingMessageFallsBackToDefaultLanguage(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.Equal(t, "Only in English", loc.Get("ru", "english_only", nil))
}

func TestGetUnknownMessageReturnsID(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.Equal(t, "no_such_message", loc.Get("en", "no_such_message", nil))
}

func TestGetTemplateFailureReturnsRawTemplate(t *testing.T) {
	loc := newTestLocalizer(t)

	// No template data for a templated message: the raw string comes back
	// untouched rather than a half-rendered one.
	assert.Equal(t, "Hello, {{.Name}}!", loc.Get("en", "greeting", nil))
}

func TestLanguageName(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.Equal(t, "English", loc.LanguageName("en"))
	assert.Equal(t, "Русский", loc.LanguageName("ru"))
}

func TestIsSupported(t *testing.T) {
	loc := newTestLocalizer(t)

	assert.True(t, loc.IsSupported("ru"))
	assert.False(t, loc.IsSupported("fr"))
}
