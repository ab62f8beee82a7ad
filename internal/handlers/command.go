package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
)

// HandleCommand dispatches a bot command. Unknown commands are ignored:
// groups routinely carry commands addressed to other bots.
func (h *Handler) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	command := msg.Command()
	h.metrics.RecordCommandExecuted(command)

	switch command {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "setup_ai":
		h.handleSetupCommand(ctx, msg)
	case "cancel_setup":
		h.handleCancelSetup(ctx, msg)
	case "set_ai_triggers":
		h.handleTriggersCommand(ctx, msg)
	case "set_moderation":
		h.handleModerationCommand(ctx, msg)
	case "set_welcome":
		h.handleWelcomeCommand(ctx, msg)
	case "set_language":
		h.handleSetLanguage(ctx, msg)
	case "settings":
		h.handleSettings(ctx, msg)
	case "newchat":
		h.handleNewChat(ctx, msg)
	case "ask_ai":
		h.handleAskCommand(ctx, msg)
	case "get_ai_config":
		h.handleGetConfig(ctx, msg)
	case "reset_ai_config":
		h.handleResetConfig(ctx, msg)
	case "getinfoid":
		h.handleGetInfoID(ctx, msg)
	case "sendmsg":
		h.handleSendMsg(ctx, msg)
	}
}

// HandleCallback decodes a callback payload once and dispatches on the
// typed action.
func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		h.answerCallback(cq.ID, "")
		return
	}

	action, err := DecodeAction(cq.Data)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", cq.From.ID).Warn("Unparseable callback")
		h.answerCallback(cq.ID, "")
		return
	}

	switch a := action.(type) {
	case OverwriteDecision:
		h.handleOverwriteDecision(ctx, cq, a)
	case ModelPick:
		h.handleModelPick(ctx, cq, a)
	case ConfirmDecision:
		h.handleConfirmDecision(ctx, cq, a)
	case TriggerToggle:
		h.handleTriggerToggle(ctx, cq, a)
	case TriggerPrefix:
		h.handleTriggerPrefix(ctx, cq, a)
	case ModerationPick:
		h.handleModerationPick(ctx, cq, a)
	case WelcomeAction:
		h.handleWelcomeAction(ctx, cq, a)
	case MenuDone:
		h.handleMenuDone(ctx, cq, a)
	case LanguagePick:
		h.handleLanguagePick(ctx, cq, a)
	case ShowThoughts:
		h.handleShowThoughts(ctx, cq, a)
	case ResetDecision:
		h.handleResetDecision(ctx, cq, a)
	case HelpPage:
		h.handleHelpPage(ctx, cq, a)
	case SettingsPage:
		h.handleSettingsPage(ctx, cq, a)
	}
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	lang := h.groupLang(ctx, msg.Chat.ID)
	if msg.Chat.IsPrivate() {
		lang = h.dmLang(ctx, msg.From.ID)
	}

	text := h.localizer.Get(lang, i18n.MsgStartGreeting, map[string]interface{}{
		"BotName": h.bot.Self.FirstName,
	})

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(
				h.localizer.Get(lang, i18n.MsgButtonAddToGroup, nil),
				fmt.Sprintf("https://t.me/%s?startgroup=true", h.bot.Self.UserName)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonHelp, nil),
				HelpPage{}.Encode()),
		),
	}
	if h.cfg.Bot.PrivacyPolicyURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(
				h.localizer.Get(lang, i18n.MsgButtonPrivacy, nil),
				h.cfg.Bot.PrivacyPolicyURL),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)

	// Prefer the branded photo; fall back to text when no file id is
	// configured or the photo send fails.
	if h.cfg.Bot.StartImageFileID != "" {
		photo := tgbotapi.NewPhoto(msg.Chat.ID, tgbotapi.FileID(h.cfg.Bot.StartImageFileID))
		photo.Caption = text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = keyboard
		if _, err := h.bot.Send(photo); err == nil {
			return
		}
		h.logger.Warn("Start photo send failed, falling back to text")
	}
	h.sendWithKeyboard(msg.Chat.ID, text, keyboard)
}

var helpCategories = []string{"setup", "triggers", "moderation", "welcome", "general"}

func (h *Handler) helpKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(helpCategories))
	for _, cat := range helpCategories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, "help_button_"+cat, nil),
				HelpPage{Category: cat}.Encode()),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	lang := h.groupLang(ctx, msg.Chat.ID)
	if msg.Chat.IsPrivate() {
		lang = h.dmLang(ctx, msg.From.ID)
	}
	h.sendWithKeyboard(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgHelpMenuTitle, nil), h.helpKeyboard(lang))
}

func (h *Handler) handleHelpPage(ctx context.Context, cq *tgbotapi.CallbackQuery, action HelpPage) {
	lang := h.groupLang(ctx, cq.Message.Chat.ID)
	if cq.Message.Chat.IsPrivate() {
		lang = h.dmLang(ctx, cq.From.ID)
	}

	if action.Category == "" {
		h.editWithKeyboard(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgHelpMenuTitle, nil), h.helpKeyboard(lang))
		h.answerCallback(cq.ID, "")
		return
	}

	back := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonBack, nil),
				HelpPage{}.Encode()),
		),
	)
	h.editWithKeyboard(cq.Message.Chat.ID, cq.Message.MessageID,
		h.localizer.Get(lang, "help_page_"+action.Category, nil), back)
	h.answerCallback(cq.ID, "")
}

func (h *Handler) languageKeyboard(scope, current string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(h.localizer.Languages()))
	for _, code := range h.localizer.Languages() {
		label := fmt.Sprintf("%s (%s)", h.localizer.LanguageName(code), code)
		if code == current {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, LanguagePick{Scope: scope, Code: code}.Encode()),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (h *Handler) handleSetLanguage(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if msg.Chat.IsPrivate() {
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}
	if !h.isGroupAdmin(groupID, msg.From.ID) {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	h.sendWithKeyboard(groupID,
		h.localizer.Get(lang, i18n.MsgLanguageMenuTitle, nil),
		h.languageKeyboard("group", lang))
}

func (h *Handler) handleSettings(ctx context.Context, msg *tgbotapi.Message) {
	lang := h.dmLang(ctx, msg.From.ID)
	if !msg.Chat.IsPrivate() {
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgDMOnly, nil))
		return
	}
	h.sendWithKeyboard(msg.Chat.ID,
		h.localizer.Get(lang, i18n.MsgSettingsMenuTitle, nil),
		h.settingsKeyboard(lang))
}

func (h *Handler) settingsKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgLanguageMenuTitle, nil),
				SettingsPage{Page: "language"}.Encode()),
		),
	)
}

func (h *Handler) handleSettingsPage(ctx context.Context, cq *tgbotapi.CallbackQuery, action SettingsPage) {
	lang := h.dmLang(ctx, cq.From.ID)

	switch action.Page {
	case "main":
		h.editWithKeyboard(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgSettingsMenuTitle, nil),
			h.settingsKeyboard(lang))
	case "language":
		current := h.store.GetUserLanguage(ctx, cq.From.ID)
		keyboard := h.languageKeyboard("user", current)
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonBack, nil),
				SettingsPage{Page: "main"}.Encode()),
		))
		h.editWithKeyboard(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgLanguageMenuTitle, nil), keyboard)
	}
	h.answerCallback(cq.ID, "")
}

func (h *Handler) handleLanguagePick(ctx context.Context, cq *tgbotapi.CallbackQuery, action LanguagePick) {
	if !h.localizer.IsSupported(action.Code) {
		lang := h.dmLang(ctx, cq.From.ID)
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgLanguageInvalid, nil))
		return
	}

	switch action.Scope {
	case "group":
		groupID := cq.Message.Chat.ID
		if !h.isGroupAdmin(groupID, cq.From.ID) {
			h.alertCallback(cq.ID, h.localizer.Get(h.groupLang(ctx, groupID), i18n.MsgAdminOnly, nil))
			return
		}
		if err := h.store.SetGroupLanguage(ctx, groupID, cq.From.ID, action.Code); err != nil {
			h.logger.WithError(err).Error("Failed to set group language")
			h.answerCallback(cq.ID, h.localizer.Get(h.groupLang(ctx, groupID), i18n.MsgGenericError, nil))
			return
		}
		// Answer in the newly chosen language.
		h.answerCallback(cq.ID, h.localizer.Get(action.Code, i18n.MsgLanguageSet, map[string]interface{}{
			"LanguageName": h.localizer.LanguageName(action.Code),
		}))
		h.editWithKeyboard(groupID, cq.Message.MessageID,
			h.localizer.Get(action.Code, i18n.MsgLanguageMenuTitle, nil),
			h.languageKeyboard("group", action.Code))
	case "user":
		if err := h.store.SetUserLanguage(ctx, cq.From.ID, action.Code); err != nil {
			h.logger.WithError(err).Error("Failed to set user language")
			h.answerCallback(cq.ID, h.localizer.Get(h.dmLang(ctx, cq.From.ID), i18n.MsgGenericError, nil))
			return
		}
		h.alertCallback(cq.ID, h.localizer.Get(action.Code, i18n.MsgUserLanguageSet, map[string]interface{}{
			"LanguageName": h.localizer.LanguageName(action.Code),
		}))
		keyboard := h.languageKeyboard("user", action.Code)
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(action.Code, i18n.MsgButtonBack, nil),
				SettingsPage{Page: "main"}.Encode()),
		))
		h.editWithKeyboard(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(action.Code, i18n.MsgLanguageMenuTitle, nil), keyboard)
	}
}

func (h *Handler) handleNewChat(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if msg.Chat.IsPrivate() {
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}
	if !h.isGroupAdmin(groupID, msg.From.ID) {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	if err := h.store.ClearHistory(ctx, groupID); err != nil {
		h.logger.WithError(err).Error("Failed to clear history")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}
	h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgHistoryCleared, nil))
}

func (h *Handler) handleAskCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		lang := h.dmLang(ctx, msg.From.ID)
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}

	cfg, err := h.store.GetConfig(ctx, msg.Chat.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load config")
		return
	}
	if cfg != nil && !cfg.TriggerCommandEnabled {
		return
	}

	question := strings.TrimSpace(msg.CommandArguments())
	if question == "" {
		lang := h.groupLang(ctx, msg.Chat.ID)
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAskUsage, nil))
		return
	}
	h.answerQuestion(ctx, msg, cfg, question)
}

func (h *Handler) handleGetConfig(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if msg.Chat.IsPrivate() {
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}
	if !h.isGroupAdmin(groupID, msg.From.ID) {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	cfg, err := h.store.GetConfig(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load config")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}
	if cfg == nil || cfg.EncryptedAPIKey == "" {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgConfigNone, nil))
		return
	}

	masked := h.localizer.Get(lang, i18n.MsgCredentialBroken, nil)
	if key := h.cipher.Decrypt(cfg.EncryptedAPIKey); key != "" {
		masked = maskKey(key)
	}

	summary := h.localizer.Get(lang, i18n.MsgConfigSummary, map[string]interface{}{
		"GroupName": msg.Chat.Title,
		"MaskedKey": masked,
		"Prompt":    cfg.SystemPrompt,
		"Model":     ai.ModelDisplayName(cfg.Model),
		"Active":    onOff(cfg.IsActive),
	})

	// The summary carries a credential fragment; it goes over DM only.
	if _, err := h.bot.Send(tgbotapi.NewMessage(msg.From.ID, summary)); err != nil {
		h.logger.WithError(err).Warn("Cannot DM config summary")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgSetupDMFailed, map[string]interface{}{
			"BotUsername": h.bot.Self.UserName,
		}))
		return
	}
	h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgSetupCheckDM, nil))
}

func (h *Handler) handleResetConfig(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if msg.Chat.IsPrivate() {
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}
	if !h.isGroupAdmin(groupID, msg.From.ID) {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonConfirmReset, nil),
				ResetDecision{Confirm: true}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonCancel, nil),
				ResetDecision{Confirm: false}.Encode()),
		),
	)
	h.sendWithKeyboard(groupID, h.localizer.Get(lang, i18n.MsgResetConfirmAsk, nil), keyboard)
}

func (h *Handler) handleResetDecision(ctx context.Context, cq *tgbotapi.CallbackQuery, action ResetDecision) {
	groupID := cq.Message.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if !h.isGroupAdmin(groupID, cq.From.ID) {
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	if !action.Confirm {
		h.editText(groupID, cq.Message.MessageID, h.localizer.Get(lang, i18n.MsgSetupCancelled, nil))
		h.answerCallback(cq.ID, "")
		return
	}

	if err := h.store.DeleteConfig(ctx, groupID, cq.From.ID); err != nil {
		h.logger.WithError(err).Error("Failed to reset config")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.editText(groupID, cq.Message.MessageID, h.localizer.Get(lang, i18n.MsgResetDone, nil))
	h.answerCallback(cq.ID, "")
	h.sendText(groupID, h.localizer.Get(lang, i18n.MsgResetGroupNotice, nil))
}

func (h *Handler) handleMenuDone(ctx context.Context, cq *tgbotapi.CallbackQuery, _ MenuDone) {
	lang := h.groupLang(ctx, cq.Message.Chat.ID)
	h.editText(cq.Message.Chat.ID, cq.Message.MessageID, h.localizer.Get(lang, i18n.MsgMenuClosed, nil))
	h.answerCallback(cq.ID, "")
}

func (h *Handler) handleGetInfoID(ctx context.Context, msg *tgbotapi.Message) {
	lang := h.groupLang(ctx, msg.Chat.ID)
	if msg.Chat.IsPrivate() {
		lang = h.dmLang(ctx, msg.From.ID)
	}

	repliedID := 0
	if msg.ReplyToMessage != nil {
		repliedID = msg.ReplyToMessage.MessageID
	}
	h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgInfoIDs, map[string]interface{}{
		"ChatID":    msg.Chat.ID,
		"UserID":    msg.From.ID,
		"MessageID": msg.MessageID,
		"RepliedID": repliedID,
	}))
}

var sendMsgRe = regexp.MustCompile(`^(-?\d+)(?:\s+(\d+))?\s+(.+)$`)

// parseSendMsg splits "/sendmsg <group_id> [topic_id] <text>" arguments.
func parseSendMsg(args string) (groupID int64, topicID int, text string, ok bool) {
	m := sendMsgRe.FindStringSubmatch(strings.TrimSpace(args))
	if m == nil {
		return 0, 0, "", false
	}
	groupID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, "", false
	}
	if m[2] != "" {
		topicID, err = strconv.Atoi(m[2])
		if err != nil {
			return 0, 0, "", false
		}
	}
	return groupID, topicID, m[3], true
}

// handleSendMsg relays a message into a group the sender administers.
func (h *Handler) handleSendMsg(ctx context.Context, msg *tgbotapi.Message) {
	lang := h.dmLang(ctx, msg.From.ID)
	if !msg.Chat.IsPrivate() {
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgDMOnly, nil))
		return
	}

	groupID, topicID, text, ok := parseSendMsg(msg.CommandArguments())
	if !ok {
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSendMsgUsage, nil))
		return
	}

	if !h.isGroupAdmin(groupID, msg.From.ID) {
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSendMsgNotAdmin, nil))
		return
	}

	relay := tgbotapi.NewMessage(groupID, text)
	if topicID != 0 {
		// Forum topics hang off their root message; replying to it lands
		// the relay inside the topic.
		relay.ReplyToMessageID = topicID
	}
	if _, err := h.bot.Send(relay); err != nil {
		h.logger.WithError(err).WithField("group_id", groupID).Warn("Relay failed")
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSendMsgFailed, nil))
		return
	}
	h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSendMsgSent, nil))
}
