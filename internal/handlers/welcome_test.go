package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ulya2402/Wisedebot/internal/models"
)

func TestRenderWelcomeTemplateAllPlaceholders(t *testing.T) {
	user := &tgbotapi.User{ID: 42, FirstName: "Ada", LastName: "Lovelace"}

	out := renderWelcomeTemplate(
		"Hi {{user_mention}}! {{user_first_name}} {{user_last_name}} ({{user_full_name}}) joined {{group_name}}.",
		user, "Gophers")

	assert.Contains(t, out, `<a href="tg://user?id=42">Ada Lovelace</a>`)
	assert.Contains(t, out, "Ada Lovelace (Ada Lovelace) joined Gophers.")
}

func TestRenderWelcomeTemplateUnknownPlaceholderStaysLiteral(t *testing.T) {
	user := &tgbotapi.User{ID: 1, FirstName: "Bo"}

	out := renderWelcomeTemplate("Hello {{user_nickname}}!", user, "G")
	assert.Equal(t, "Hello {{user_nickname}}!", out)
}

func TestRenderWelcomeTemplateEscapesNames(t *testing.T) {
	user := &tgbotapi.User{ID: 1, FirstName: "<script>"}

	out := renderWelcomeTemplate("{{user_first_name}} in {{group_name}}", user, "A&B")
	assert.Equal(t, "&lt;script&gt; in A&amp;B", out)
}

func TestRenderWelcomeTemplateMissingLastName(t *testing.T) {
	user := &tgbotapi.User{ID: 1, FirstName: "Solo"}

	out := renderWelcomeTemplate("{{user_full_name}}|{{user_last_name}}|", user, "G")
	assert.Equal(t, "Solo||", out)
}

func TestAIWelcomeEligible(t *testing.T) {
	assert.True(t, aiWelcomeEligible(&models.GroupConfig{
		WelcomeAIEnabled: true,
		IsActive:         true,
		EncryptedAPIKey:  "enc",
	}))

	// An inactive assistant falls back to the template path even when the
	// AI toggle is on and a credential is stored.
	assert.False(t, aiWelcomeEligible(&models.GroupConfig{
		WelcomeAIEnabled: true,
		IsActive:         false,
		EncryptedAPIKey:  "enc",
	}))
	assert.False(t, aiWelcomeEligible(&models.GroupConfig{
		WelcomeAIEnabled: true,
		IsActive:         true,
	}))
	assert.False(t, aiWelcomeEligible(&models.GroupConfig{
		IsActive:        true,
		EncryptedAPIKey: "enc",
	}))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "gsk_abc****", maskKey("gsk_abcdefghijklmnop"))
	assert.Equal(t, "gsk_****", maskKey("gsk_"))
	assert.Equal(t, "gsk_abc****", maskKey("gsk_abc"))
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", fullName(&tgbotapi.User{FirstName: "Ada", LastName: "Lovelace"}))
	assert.Equal(t, "Ada", fullName(&tgbotapi.User{FirstName: "Ada"}))
	assert.Equal(t, "", fullName(nil))
}
