package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/ulya2402/Wisedebot/internal/config"
)

// Localizer serves translated bot messages. Message files are loaded once
// at startup and never change afterwards.
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	languages       []string
	localizers      map[string]*i18n.Localizer
	rawMessages     map[string]map[string]string
}

// NewLocalizer loads one flat JSON message file per configured language.
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	rawMessages := make(map[string]map[string]string)
	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, fmt.Sprintf("%s.json", lang))
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}

		// Keep the raw templates around so a failed template execution
		// can fall back to the untouched string instead of an error page.
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read language file %s: %w", lang, err)
		}
		raw := make(map[string]string)
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse language file %s: %w", lang, err)
		}
		rawMessages[lang] = raw
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		languages:       cfg.Languages,
		localizers:      localizers,
		rawMessages:     rawMessages,
	}, nil
}

// Get returns the message for lang, falling back to the default language
// for unknown languages, to the raw template when template execution fails,
// and finally to the message id itself.
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		lang = l.defaultLanguage
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err == nil {
		return msg
	}

	if raw, ok := l.rawMessages[lang][messageID]; ok {
		return raw
	}
	if raw, ok := l.rawMessages[l.defaultLanguage][messageID]; ok {
		return raw
	}
	return messageID
}

// IsSupported reports whether lang has a loaded message file.
func (l *Localizer) IsSupported(lang string) bool {
	_, ok := l.localizers[lang]
	return ok
}

// Languages lists the loaded language codes in configuration order.
func (l *Localizer) Languages() []string {
	return l.languages
}

// LanguageName returns the self-describing display name of a language
// ("English", "Русский", …), taken from that language's own message file.
func (l *Localizer) LanguageName(lang string) string {
	return l.Get(lang, MsgLanguageName, nil)
}

// DefaultLanguage returns the configured fallback language code.
func (l *Localizer) DefaultLanguage() string {
	return l.defaultLanguage
}

// Message IDs
const (
	MsgLanguageName = "language_name"

	MsgStartGreeting     = "start_greeting"
	MsgHelpMenuTitle     = "help_menu_title"
	MsgGenericError      = "generic_error"
	MsgAdminOnly         = "admin_only_command"
	MsgGroupOnly         = "group_only_command"
	MsgDMOnly            = "dm_only_command"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgAINotConfigured   = "ai_not_configured"
	MsgAIDisabled        = "ai_disabled"
	MsgCredentialBroken  = "credential_unreadable"
	MsgThinking          = "ai_thinking"
	MsgProviderError     = "groq_api_error"
	MsgUnexpectedError   = "unexpected_groq_error"
	MsgShowThoughts      = "button_show_thoughts"
	MsgThoughtsExpired   = "thoughts_expired"
	MsgHistoryCleared    = "history_cleared"

	MsgSetupCheckDM       = "setup_check_dm"
	MsgSetupDMFailed      = "setup_dm_failed"
	MsgSetupOverwriteAsk  = "setup_overwrite_ask"
	MsgSetupAskKey        = "setup_ask_key"
	MsgSetupKeyBadPrefix  = "setup_key_bad_prefix"
	MsgSetupKeyInvalid    = "setup_key_invalid"
	MsgSetupKeyValidating = "setup_key_validating"
	MsgSetupAskPrompt     = "setup_ask_prompt"
	MsgSetupPromptEmpty   = "setup_prompt_empty"
	MsgSetupAskModel      = "setup_ask_model"
	MsgSetupModelFromList = "setup_model_from_list"
	MsgSetupConfirm       = "setup_confirm"
	MsgSetupSaved         = "setup_saved"
	MsgSetupSaveFailed    = "setup_save_failed"
	MsgSetupDataMissing   = "setup_data_missing"
	MsgSetupCancelled     = "setup_cancelled"
	MsgSetupNothingCancel = "setup_nothing_to_cancel"
	MsgSetupGroupNotified = "setup_group_notified"
	MsgButtonYesOverwrite = "button_yes_overwrite"
	MsgButtonNoKeep       = "button_no_keep"
	MsgButtonSave         = "button_save"
	MsgButtonEdit         = "button_edit"
	MsgButtonCancel       = "button_cancel"

	MsgTriggersMenuTitle    = "triggers_menu_title"
	MsgTriggerCommandOn     = "trigger_command_on"
	MsgTriggerCommandOff    = "trigger_command_off"
	MsgTriggerMentionOn     = "trigger_mention_on"
	MsgTriggerMentionOff    = "trigger_mention_off"
	MsgTriggerPrefixSet     = "trigger_prefix_set"
	MsgTriggerPrefixRemoved = "trigger_prefix_removed"
	MsgTriggerPrefixAsk     = "trigger_prefix_ask"
	MsgTriggerPrefixEmpty   = "trigger_prefix_empty"
	MsgTriggerPrefixSlash   = "trigger_prefix_slash"
	MsgButtonDone           = "button_done"

	MsgModerationMenuTitle  = "moderation_menu_title"
	MsgModerationLevelSet   = "moderation_level_set"
	MsgModerationUnchanged  = "moderation_level_unchanged"
	MsgModerationWarning    = "moderation_warning"
	MsgModerationNoReason   = "moderation_no_reason"
	MsgModerationAdminAlert = "moderation_admin_alert"

	MsgWelcomeMenuTitle     = "welcome_menu_title"
	MsgWelcomeEnabled       = "welcome_enabled"
	MsgWelcomeDisabled      = "welcome_disabled"
	MsgWelcomeAIOn          = "welcome_ai_on"
	MsgWelcomeAIOff         = "welcome_ai_off"
	MsgWelcomeTextAsk       = "welcome_text_ask"
	MsgWelcomeTextEmpty     = "welcome_text_empty"
	MsgWelcomeTextSet       = "welcome_text_set"
	MsgWelcomeTextRemoved   = "welcome_text_removed"
	MsgWelcomeTextBlockedAI = "welcome_text_blocked_ai"
	MsgWelcomeDefault       = "welcome_default"
	MsgBotAddedToGroup      = "bot_added_to_group"

	MsgLanguageMenuTitle = "language_menu_title"
	MsgLanguageSet       = "language_set"
	MsgLanguageInvalid   = "language_invalid"
	MsgSettingsMenuTitle = "settings_menu_title"
	MsgUserLanguageSet   = "user_language_set"

	MsgConfigSummary      = "config_summary"
	MsgConfigNone         = "config_none"
	MsgResetConfirmAsk    = "reset_confirm_ask"
	MsgResetDone          = "reset_done"
	MsgResetGroupNotice   = "reset_group_notice"
	MsgButtonConfirmReset = "button_confirm_reset"

	MsgButtonAddToGroup = "button_add_to_group"
	MsgButtonHelp       = "button_help"
	MsgButtonPrivacy    = "button_privacy"
	MsgButtonBack       = "button_back"
	MsgAskUsage         = "ask_usage"
	MsgMenuClosed       = "menu_closed"

	MsgInfoIDs         = "info_ids"
	MsgSendMsgUsage    = "sendmsg_usage"
	MsgSendMsgNotAdmin = "sendmsg_not_admin"
	MsgSendMsgSent     = "sendmsg_sent"
	MsgSendMsgFailed   = "sendmsg_failed"
)
