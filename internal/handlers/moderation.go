package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/models"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
)

// Moderation verdicts as recorded in metrics and logs.
const (
	verdictFlagged       = "flagged"
	verdictSafe          = "safe"
	verdictIndeterminate = "indeterminate"
)

const excerptLimit = 200

// moderationInstruction builds the classification prompt for a sensitivity
// level. The category list is fixed at every level; the level only tunes how
// sensitive the classifier should be. The model must answer
// "FLAGGED: <reason>" or "SAFE"; anything else is treated as indeterminate.
func moderationInstruction(level string) string {
	return "You are a content moderation classifier for a group chat. " +
		"Analyze the message, in any language, for forbidden content. This includes, but is not limited to: " +
		"profanity (e.g. 'kata kotor' in Indonesian, Javanese swear words like 'asu', and swear words in any other language), " +
		"hate speech, explicit adult content, severe violence, self-harm encouragement, harassment, and illegal activities. " +
		"Respond with exactly \"FLAGGED: <short reason>\" if the message violates the policy, or exactly \"SAFE\" if it does not. " +
		"Do not add anything else. Be more sensitive the higher the requested level. Current level: " + level + "."
}

// parseModerationVerdict maps raw classifier output to a verdict. The
// classifier is fail-open: output matching neither form means no action.
func parseModerationVerdict(raw string) (verdict, reason string) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "FLAGGED:") {
		return verdictFlagged, strings.TrimSpace(strings.TrimPrefix(trimmed, "FLAGGED:"))
	}
	if strings.EqualFold(trimmed, "SAFE") {
		return verdictSafe, ""
	}
	return verdictIndeterminate, ""
}

// excerpt truncates text for admin notifications.
func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}

// moderationEligible reports whether a group's messages get classified.
// Only a stored credential and an enabled level matter; IsActive gates the
// Q&A assistant, not moderation.
func moderationEligible(cfg *models.GroupConfig) bool {
	if cfg == nil || cfg.EncryptedAPIKey == "" {
		return false
	}
	return cfg.ModerationLevel != "" && cfg.ModerationLevel != models.ModerationDisabled
}

// moderateMessage classifies one group message and acts on a violation.
// Runs independently of trigger handling on the same message.
func (h *Handler) moderateMessage(ctx context.Context, msg *tgbotapi.Message, cfg *models.GroupConfig) {
	if !moderationEligible(cfg) {
		return
	}

	apiKey := h.cipher.Decrypt(cfg.EncryptedAPIKey)
	if apiKey == "" {
		h.logger.WithField("group_id", cfg.GroupID).Warn("Moderation skipped: credential unreadable")
		return
	}

	result := h.ai.Complete(ctx, apiKey, cfg.Model, []models.Message{
		{Role: models.RoleSystem, Content: moderationInstruction(cfg.ModerationLevel)},
		{Role: models.RoleUser, Content: msg.Text},
	})
	if tag, detail, isErr := result.IsProviderError(); isErr {
		h.logger.WithFields(logrus.Fields{
			"group_id": cfg.GroupID,
			"tag":      tag,
			"detail":   detail,
		}).Warn("Moderation classifier call failed, message passes")
		h.metrics.RecordModerationVerdict(verdictIndeterminate)
		return
	}

	verdict, reason := parseModerationVerdict(result.MainResponse)
	h.metrics.RecordModerationVerdict(verdict)

	switch verdict {
	case verdictSafe:
		return
	case verdictIndeterminate:
		h.logger.WithFields(logrus.Fields{
			"group_id": cfg.GroupID,
			"output":   excerpt(result.MainResponse, 80),
		}).Warn("Moderation classifier output unrecognized, message passes")
		return
	}

	lang := h.groupLang(ctx, cfg.GroupID)
	if reason == "" {
		reason = h.localizer.Get(lang, i18n.MsgModerationNoReason, nil)
	}

	h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgModerationWarning, map[string]interface{}{
		"UserName": fullName(msg.From),
		"Reason":   reason,
	}))

	results := h.notifyAdminsOfViolation(ctx, msg, lang, reason)
	for _, r := range results {
		entry := h.logger.WithFields(logrus.Fields{
			"group_id": cfg.GroupID,
			"admin_id": r.AdminID,
		})
		if r.Err != nil {
			entry.WithError(r.Err).Warn("Admin violation notification failed")
		} else {
			entry.Debug("Admin notified of violation")
		}
	}
}

// notifyAdminsOfViolation fans a violation alert out to every non-bot
// admin over DM, with the offending message forwarded after the alert.
// One result per admin; individual failures never stop the fan-out.
func (h *Handler) notifyAdminsOfViolation(ctx context.Context, msg *tgbotapi.Message, lang, reason string) []models.AdminNotifyResult {
	admins, err := h.chatAdmins(msg.Chat.ID)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", msg.Chat.ID).Warn("Cannot list admins for violation alert")
		return nil
	}

	alert := h.localizer.Get(lang, i18n.MsgModerationAdminAlert, map[string]interface{}{
		"GroupName": msg.Chat.Title,
		"UserName":  fullName(msg.From),
		"UserID":    msg.From.ID,
		"Reason":    reason,
		"Excerpt":   excerpt(msg.Text, excerptLimit),
	})

	results := make([]models.AdminNotifyResult, 0, len(admins))
	for _, admin := range admins {
		result := models.AdminNotifyResult{
			AdminID:   admin.User.ID,
			AdminName: fullName(admin.User),
		}

		if _, err := h.bot.Send(tgbotapi.NewMessage(admin.User.ID, alert)); err != nil {
			result.Err = fmt.Errorf("alert send failed: %w", err)
			results = append(results, result)
			continue
		}
		result.Notified = true

		forward := tgbotapi.NewForward(admin.User.ID, msg.Chat.ID, msg.MessageID)
		if _, err := h.bot.Send(forward); err != nil {
			result.Err = fmt.Errorf("forward failed: %w", err)
		} else {
			result.Forwarded = true
		}
		results = append(results, result)
	}
	return results
}

// handleModerationCommand opens the moderation level menu in the group.
func (h *Handler) handleModerationCommand(ctx context.Context, msg *tgbotapi.Message) {
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
		h.localizer.Get(lang, i18n.MsgModerationMenuTitle, nil),
		h.moderationKeyboard(lang, currentModerationLevel(cfg)))
}

func currentModerationLevel(cfg *models.GroupConfig) string {
	if cfg == nil || !models.ValidModerationLevel(cfg.ModerationLevel) {
		return models.ModerationDisabled
	}
	return cfg.ModerationLevel
}

func (h *Handler) moderationKeyboard(lang, current string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(models.ModerationLevels)+1)
	for _, level := range models.ModerationLevels {
		label := h.localizer.Get(lang, "moderation_level_"+level, nil)
		if level == current {
			label = "✅ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, ModerationPick{Level: level}.Encode()),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			h.localizer.Get(lang, i18n.MsgButtonDone, nil),
			MenuDone{Menu: "mod"}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleModerationPick stores a selected level. Re-picking the current
// level acknowledges without a write.
func (h *Handler) handleModerationPick(ctx context.Context, cq *tgbotapi.CallbackQuery, action ModerationPick) {
	groupID := cq.Message.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if !h.isGroupAdmin(groupID, cq.From.ID) {
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}
	if !models.ValidModerationLevel(action.Level) {
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	cfg, err := h.store.GetConfig(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load config")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}
	if currentModerationLevel(cfg) == action.Level {
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgModerationUnchanged, nil))
		return
	}

	if err := h.store.SaveConfig(ctx, groupID, cq.From.ID, storage.ConfigUpdate{ModerationLevel: &action.Level}); err != nil {
		h.logger.WithError(err).Error("Failed to save moderation level")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgModerationLevelSet, map[string]interface{}{
		"Level": h.localizer.Get(lang, "moderation_level_"+action.Level, nil),
	}))
	h.editWithKeyboard(groupID, cq.Message.MessageID,
		h.localizer.Get(lang, i18n.MsgModerationMenuTitle, nil),
		h.moderationKeyboard(lang, action.Level))
}
