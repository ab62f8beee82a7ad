package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActionRoundTrip(t *testing.T) {
	actions := []Action{
		OverwriteDecision{Accept: true},
		OverwriteDecision{Accept: false},
		ModelPick{ModelID: "llama3-70b-8192"},
		ModelPick{ModelID: "meta-llama/Llama-4-scout-17B-Chat-alpha-v0.1"},
		ConfirmDecision{Choice: "save"},
		ConfirmDecision{Choice: "edit"},
		ConfirmDecision{Choice: "cancel"},
		TriggerToggle{Kind: "command"},
		TriggerToggle{Kind: "mention"},
		TriggerPrefix{Op: "set"},
		TriggerPrefix{Op: "remove"},
		ModerationPick{Level: "aggressive"},
		WelcomeAction{Op: "ai_toggle"},
		MenuDone{Menu: "trig"},
		MenuDone{Menu: "mod"},
		MenuDone{Menu: "wel"},
		LanguagePick{Scope: "group", Code: "ru"},
		LanguagePick{Scope: "user", Code: "id"},
		ShowThoughts{Token: "2f1a7c1e-aaaa-bbbb-cccc-0123456789ab"},
		ResetDecision{Confirm: true},
		ResetDecision{Confirm: false},
		HelpPage{},
		HelpPage{Category: "moderation"},
		SettingsPage{Page: "language"},
	}

	for _, action := range actions {
		decoded, err := DecodeAction(action.Encode())
		require.NoError(t, err, "payload %q", action.Encode())
		assert.Equal(t, action, decoded)
	}
}

func TestDecodeActionModelIDWithColons(t *testing.T) {
	// Model ids may contain slashes and dots, never colons, but the token
	// after "setup:model:" must be taken verbatim.
	decoded, err := DecodeAction("setup:model:meta-llama/Llama-4-scout-17B-Chat-alpha-v0.1")
	require.NoError(t, err)
	assert.Equal(t, ModelPick{ModelID: "meta-llama/Llama-4-scout-17B-Chat-alpha-v0.1"}, decoded)
}

func TestDecodeActionRejectsUnknownPayloads(t *testing.T) {
	for _, data := range []string{
		"",
		"garbage",
		"setup",
		"setup:overwrite:maybe",
		"setup:model:",
		"trig:toggle:everything",
		"mod:level:",
		"wel:explode",
		"lang:planet:en",
		"reset:perhaps",
		"settings:advanced",
	} {
		_, err := DecodeAction(data)
		assert.Error(t, err, "payload %q should not decode", data)
	}
}
