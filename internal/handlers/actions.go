package handlers

import (
	"fmt"
	"strings"
)

// Action is a decoded callback payload. Raw callback data is parsed once
// at the dispatch boundary; everything downstream switches on these types
// instead of re-splitting strings.
type Action interface {
	// Encode renders the wire form placed in inline keyboard buttons.
	Encode() string
}

// OverwriteDecision answers the "replace existing setup?" question.
type OverwriteDecision struct{ Accept bool }

// ModelPick selects a model on the setup keyboard.
type ModelPick struct{ ModelID string }

// ConfirmDecision resolves the setup confirmation screen.
type ConfirmDecision struct {
	// Choice is one of "save", "edit", "cancel".
	Choice string
}

// TriggerToggle flips one trigger on the triggers menu.
type TriggerToggle struct {
	// Kind is "command" or "mention".
	Kind string
}

// TriggerPrefix manages the custom prefix.
type TriggerPrefix struct {
	// Op is "set" or "remove".
	Op string
}

// ModerationPick selects a moderation level.
type ModerationPick struct{ Level string }

// WelcomeAction operates the welcome menu.
type WelcomeAction struct {
	// Op is "on", "off", "ai_toggle", "text_set" or "text_remove".
	Op string
}

// MenuDone closes a settings menu. Menu is "trig", "mod" or "wel".
type MenuDone struct{ Menu string }

// LanguagePick sets a language for a group or a user preference.
type LanguagePick struct {
	// Scope is "group" or "user".
	Scope string
	Code  string
}

// ShowThoughts reveals a stashed reasoning blob.
type ShowThoughts struct{ Token string }

// ResetDecision resolves the /reset_ai_config confirmation.
type ResetDecision struct{ Confirm bool }

// HelpPage navigates the /help menu; empty Category means the main page.
type HelpPage struct{ Category string }

// SettingsPage navigates the /settings menu.
type SettingsPage struct {
	// Page is "main" or "language".
	Page string
}

func (a OverwriteDecision) Encode() string {
	if a.Accept {
		return "setup:overwrite:yes"
	}
	return "setup:overwrite:no"
}
func (a ModelPick) Encode() string       { return "setup:model:" + a.ModelID }
func (a ConfirmDecision) Encode() string { return "setup:confirm:" + a.Choice }
func (a TriggerToggle) Encode() string   { return "trig:toggle:" + a.Kind }
func (a TriggerPrefix) Encode() string   { return "trig:prefix:" + a.Op }
func (a ModerationPick) Encode() string  { return "mod:level:" + a.Level }
func (a WelcomeAction) Encode() string   { return "wel:" + a.Op }
func (a MenuDone) Encode() string        { return a.Menu + ":done" }
func (a LanguagePick) Encode() string    { return "lang:" + a.Scope + ":" + a.Code }
func (a ShowThoughts) Encode() string    { return "thoughts:" + a.Token }
func (a ResetDecision) Encode() string {
	if a.Confirm {
		return "reset:confirm"
	}
	return "reset:cancel"
}
func (a HelpPage) Encode() string {
	if a.Category == "" {
		return "help:main"
	}
	return "help:" + a.Category
}
func (a SettingsPage) Encode() string { return "settings:" + a.Page }

// DecodeAction parses raw callback data. Unknown payloads return an error
// so stale buttons fail loudly in logs instead of silently matching.
func DecodeAction(data string) (Action, error) {
	parts := strings.SplitN(data, ":", 3)
	switch parts[0] {
	case "setup":
		if len(parts) < 2 {
			break
		}
		switch parts[1] {
		case "overwrite":
			if len(parts) == 3 && (parts[2] == "yes" || parts[2] == "no") {
				return OverwriteDecision{Accept: parts[2] == "yes"}, nil
			}
		case "model":
			if len(parts) == 3 && parts[2] != "" {
				return ModelPick{ModelID: parts[2]}, nil
			}
		case "confirm":
			if len(parts) == 3 {
				switch parts[2] {
				case "save", "edit", "cancel":
					return ConfirmDecision{Choice: parts[2]}, nil
				}
			}
		}
	case "trig":
		if len(parts) < 2 {
			break
		}
		switch parts[1] {
		case "toggle":
			if len(parts) == 3 && (parts[2] == "command" || parts[2] == "mention") {
				return TriggerToggle{Kind: parts[2]}, nil
			}
		case "prefix":
			if len(parts) == 3 && (parts[2] == "set" || parts[2] == "remove") {
				return TriggerPrefix{Op: parts[2]}, nil
			}
		case "done":
			return MenuDone{Menu: "trig"}, nil
		}
	case "mod":
		if len(parts) < 2 {
			break
		}
		switch parts[1] {
		case "level":
			if len(parts) == 3 && parts[2] != "" {
				return ModerationPick{Level: parts[2]}, nil
			}
		case "done":
			return MenuDone{Menu: "mod"}, nil
		}
	case "wel":
		if len(parts) == 2 {
			switch parts[1] {
			case "on", "off", "ai_toggle", "text_set", "text_remove":
				return WelcomeAction{Op: parts[1]}, nil
			case "done":
				return MenuDone{Menu: "wel"}, nil
			}
		}
	case "lang":
		if len(parts) == 3 && (parts[1] == "group" || parts[1] == "user") && parts[2] != "" {
			return LanguagePick{Scope: parts[1], Code: parts[2]}, nil
		}
	case "thoughts":
		if len(parts) >= 2 && parts[1] != "" {
			return ShowThoughts{Token: strings.TrimPrefix(data, "thoughts:")}, nil
		}
	case "reset":
		if len(parts) == 2 && (parts[1] == "confirm" || parts[1] == "cancel") {
			return ResetDecision{Confirm: parts[1] == "confirm"}, nil
		}
	case "help":
		if len(parts) >= 2 && parts[1] != "" {
			if parts[1] == "main" {
				return HelpPage{}, nil
			}
			return HelpPage{Category: strings.TrimPrefix(data, "help:")}, nil
		}
	case "settings":
		if len(parts) == 2 && (parts[1] == "main" || parts[1] == "language") {
			return SettingsPage{Page: parts[1]}, nil
		}
	}
	return nil, fmt.Errorf("unknown callback payload: %q", data)
}
