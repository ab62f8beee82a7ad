package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/models"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
)

// handleTriggersCommand opens the trigger configuration menu in the group.
func (h *Handler) handleTriggersCommand(ctx context.Context, msg *tgbotapi.Message) {
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
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.sendWithKeyboard(groupID,
		h.localizer.Get(lang, i18n.MsgTriggersMenuTitle, nil),
		h.triggersKeyboard(lang, cfg))
}

func (h *Handler) triggersKeyboard(lang string, cfg *models.GroupConfig) tgbotapi.InlineKeyboardMarkup {
	commandOn, mentionOn := true, true
	prefix := ""
	if cfg != nil {
		commandOn = cfg.TriggerCommandEnabled
		mentionOn = cfg.TriggerMentionEnabled
		prefix = cfg.TriggerCustomPrefix
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				onOff(commandOn)+" /ask_ai",
				TriggerToggle{Kind: "command"}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				onOff(mentionOn)+" @"+h.bot.Self.UserName,
				TriggerToggle{Kind: "mention"}.Encode()),
		),
	}

	prefixLabel := h.localizer.Get(lang, i18n.MsgTriggerPrefixAsk, nil)
	if prefix != "" {
		prefixLabel = "✏️ " + prefix
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(prefixLabel, TriggerPrefix{Op: "set"}.Encode()),
	))
	if prefix != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"🗑 "+h.localizer.Get(lang, i18n.MsgTriggerPrefixRemoved, nil),
				TriggerPrefix{Op: "remove"}.Encode()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			h.localizer.Get(lang, i18n.MsgButtonDone, nil),
			MenuDone{Menu: "trig"}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleTriggerToggle flips a trigger and refreshes the menu in place.
func (h *Handler) handleTriggerToggle(ctx context.Context, cq *tgbotapi.CallbackQuery, action TriggerToggle) {
	groupID := cq.Message.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if !h.isGroupAdmin(groupID, cq.From.ID) {
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	cfg, err := h.store.GetConfig(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load config")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	var upd storage.ConfigUpdate
	var toast string
	switch action.Kind {
	case "command":
		enabled := cfg == nil || cfg.TriggerCommandEnabled
		flipped := !enabled
		upd.TriggerCommandEnabled = &flipped
		if flipped {
			toast = h.localizer.Get(lang, i18n.MsgTriggerCommandOn, nil)
		} else {
			toast = h.localizer.Get(lang, i18n.MsgTriggerCommandOff, nil)
		}
	case "mention":
		enabled := cfg == nil || cfg.TriggerMentionEnabled
		flipped := !enabled
		upd.TriggerMentionEnabled = &flipped
		if flipped {
			toast = h.localizer.Get(lang, i18n.MsgTriggerMentionOn, nil)
		} else {
			toast = h.localizer.Get(lang, i18n.MsgTriggerMentionOff, nil)
		}
	}

	if err := h.store.SaveConfig(ctx, groupID, cq.From.ID, upd); err != nil {
		h.logger.WithError(err).Error("Failed to save trigger toggle")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.answerCallback(cq.ID, toast)
	h.refreshTriggersMenu(ctx, cq)
}

// handleTriggerPrefix starts prefix entry or removes the stored prefix.
func (h *Handler) handleTriggerPrefix(ctx context.Context, cq *tgbotapi.CallbackQuery, action TriggerPrefix) {
	groupID := cq.Message.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if !h.isGroupAdmin(groupID, cq.From.ID) {
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	switch action.Op {
	case "remove":
		empty := ""
		if err := h.store.SaveConfig(ctx, groupID, cq.From.ID, storage.ConfigUpdate{TriggerCustomPrefix: &empty}); err != nil {
			h.logger.WithError(err).Error("Failed to remove prefix")
			h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
			return
		}
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgTriggerPrefixRemoved, nil))
		h.refreshTriggersMenu(ctx, cq)
	case "set":
		sess := &models.SetupSession{
			AdminID:   cq.From.ID,
			GroupID:   groupID,
			GroupName: cq.Message.Chat.Title,
			Language:  lang,
			State:     models.StateAwaitingPrefix,
		}
		if err := h.sessions.Save(ctx, sess); err != nil {
			h.logger.WithError(err).Error("Failed to save session")
			h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
			return
		}
		h.answerCallback(cq.ID, "")
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgTriggerPrefixAsk, nil))
	}
}

// consumePrefix accepts the typed custom prefix from the group.
func (h *Handler) consumePrefix(ctx context.Context, sess *models.SetupSession, msg *tgbotapi.Message) {
	prefix := strings.TrimSpace(msg.Text)
	lang := sess.Language

	if prefix == "" {
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgTriggerPrefixEmpty, nil))
		return
	}
	if strings.HasPrefix(prefix, "/") {
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgTriggerPrefixSlash, nil))
		return
	}

	if err := h.store.SaveConfig(ctx, sess.GroupID, sess.AdminID, storage.ConfigUpdate{TriggerCustomPrefix: &prefix}); err != nil {
		h.logger.WithError(err).Error("Failed to save prefix")
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.clearSession(ctx, sess.AdminID)
	h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgTriggerPrefixSet, map[string]interface{}{
		"Prefix": prefix,
	}))
}

func (h *Handler) refreshTriggersMenu(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	groupID := cq.Message.Chat.ID
	lang := h.groupLang(ctx, groupID)
	cfg, err := h.store.GetConfig(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload config")
		return
	}
	h.editWithKeyboard(groupID, cq.Message.MessageID,
		h.localizer.Get(lang, i18n.MsgTriggersMenuTitle, nil),
		h.triggersKeyboard(lang, cfg))
}
