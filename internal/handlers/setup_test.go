package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulya2402/Wisedebot/internal/models"
)

func TestSetupConfigUpdateStagesCollectedFields(t *testing.T) {
	sess := &models.SetupSession{
		AdminID:  7,
		GroupID:  -100,
		Language: "ru",
		Prompt:   "be helpful",
		Model:    "llama3-70b-8192",
	}

	upd := setupConfigUpdate(sess, "ciphertext")

	require.NotNil(t, upd.EncryptedAPIKey)
	assert.Equal(t, "ciphertext", *upd.EncryptedAPIKey)
	require.NotNil(t, upd.SystemPrompt)
	assert.Equal(t, "be helpful", *upd.SystemPrompt)
	require.NotNil(t, upd.Model)
	assert.Equal(t, "llama3-70b-8192", *upd.Model)
	require.NotNil(t, upd.LanguageCode)
	assert.Equal(t, "ru", *upd.LanguageCode)
}

func TestSetupConfigUpdateLeavesActivationAlone(t *testing.T) {
	sess := &models.SetupSession{
		AdminID:  7,
		GroupID:  -100,
		Language: "en",
		Prompt:   "be helpful",
		Model:    "llama3-70b-8192",
	}

	upd := setupConfigUpdate(sess, "ciphertext")
	assert.Nil(t, upd.IsActive, "saving the dialog must not flip the assistant on")
}
