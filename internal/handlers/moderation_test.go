package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ulya2402/Wisedebot/internal/models"
)

func TestParseModerationVerdict(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantV      string
		wantReason string
	}{
		{"flagged with reason", "FLAGGED: hate speech", verdictFlagged, "hate speech"},
		{"flagged no reason", "FLAGGED:", verdictFlagged, ""},
		{"flagged padded", "  FLAGGED:   spam  ", verdictFlagged, "spam"},
		{"safe exact", "SAFE", verdictSafe, ""},
		{"safe lowercase", "safe", verdictSafe, ""},
		{"safe padded", "  Safe  ", verdictSafe, ""},
		{"chatty output", "I think this message is fine.", verdictIndeterminate, ""},
		{"empty output", "", verdictIndeterminate, ""},
		{"flagged not at start", "The verdict is FLAGGED: spam", verdictIndeterminate, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, reason := parseModerationVerdict(tt.raw)
			assert.Equal(t, tt.wantV, v)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestModerationInstructionPerLevel(t *testing.T) {
	categories := []string{
		"profanity",
		"hate speech",
		"explicit adult content",
		"severe violence",
		"self-harm",
		"harassment",
		"illegal activities",
	}

	seen := map[string]bool{}
	for _, level := range []string{
		models.ModerationLow,
		models.ModerationNormal,
		models.ModerationAggressive,
		models.ModerationVeryAggressive,
	} {
		inst := moderationInstruction(level)
		assert.Contains(t, inst, "FLAGGED:")
		assert.Contains(t, inst, "SAFE")
		assert.Contains(t, inst, "Current level: "+level)
		for _, cat := range categories {
			assert.Contains(t, inst, cat, "every level keeps the full category list")
		}
		assert.False(t, seen[inst], "levels must produce distinct instructions")
		seen[inst] = true
	}
}

func TestModerationEligible(t *testing.T) {
	assert.False(t, moderationEligible(nil))
	assert.False(t, moderationEligible(&models.GroupConfig{ModerationLevel: models.ModerationAggressive}),
		"no credential, nothing to call the classifier with")
	assert.False(t, moderationEligible(&models.GroupConfig{EncryptedAPIKey: "enc", ModerationLevel: models.ModerationDisabled}))
	assert.False(t, moderationEligible(&models.GroupConfig{EncryptedAPIKey: "enc"}))

	// A paused assistant still moderates: only credential and level matter.
	assert.True(t, moderationEligible(&models.GroupConfig{
		IsActive:        false,
		EncryptedAPIKey: "enc",
		ModerationLevel: models.ModerationAggressive,
	}))
	assert.True(t, moderationEligible(&models.GroupConfig{
		IsActive:        true,
		EncryptedAPIKey: "enc",
		ModerationLevel: models.ModerationLow,
	}))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 200))

	long := strings.Repeat("я", 300)
	got := excerpt(long, 200)
	assert.Equal(t, 201, len([]rune(got)), "200 runes plus ellipsis")
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestCurrentModerationLevel(t *testing.T) {
	assert.Equal(t, models.ModerationDisabled, currentModerationLevel(nil))
	assert.Equal(t, models.ModerationDisabled, currentModerationLevel(&models.GroupConfig{ModerationLevel: "bogus"}))
	assert.Equal(t, models.ModerationAggressive, currentModerationLevel(&models.GroupConfig{ModerationLevel: models.ModerationAggressive}))
}
