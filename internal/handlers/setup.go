package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/models"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
)

const keyPrefix = "gsk_"

// handleSetupCommand starts the configuration dialog. The command runs in
// the group; the dialog itself happens over DM with the invoking admin.
func (h *Handler) handleSetupCommand(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID
	adminID := msg.From.ID
	lang := h.groupLang(ctx, groupID)

	if msg.Chat.IsPrivate() {
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgGroupOnly, nil))
		return
	}
	if !h.isGroupAdmin(groupID, adminID) {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAdminOnly, nil))
		return
	}

	sess := &models.SetupSession{
		AdminID:   adminID,
		GroupID:   groupID,
		GroupName: msg.Chat.Title,
		Language:  lang,
	}

	cfg, err := h.store.GetConfig(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", groupID).Error("Failed to load config for setup")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	data := map[string]interface{}{"GroupName": sess.GroupName}
	var dm tgbotapi.MessageConfig
	if cfg != nil && cfg.EncryptedAPIKey != "" {
		sess.State = models.StateAwaitingOverwrite
		dm = tgbotapi.NewMessage(adminID, h.localizer.Get(lang, i18n.MsgSetupOverwriteAsk, data))
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					h.localizer.Get(lang, i18n.MsgButtonYesOverwrite, nil),
					OverwriteDecision{Accept: true}.Encode()),
				tgbotapi.NewInlineKeyboardButtonData(
					h.localizer.Get(lang, i18n.MsgButtonNoKeep, nil),
					OverwriteDecision{Accept: false}.Encode()),
			),
		)
		dm.ReplyMarkup = keyboard
	} else {
		sess.State = models.StateAwaitingAPIKey
		dm = tgbotapi.NewMessage(adminID, h.localizer.Get(lang, i18n.MsgSetupAskKey, data))
	}

	// DM first: if the admin never opened a private chat with the bot the
	// send fails and the dialog cannot proceed.
	if _, err := h.bot.Send(dm); err != nil {
		h.logger.WithError(err).WithField("admin_id", adminID).Warn("Cannot DM setup dialog")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgSetupDMFailed, map[string]interface{}{
			"BotUsername": h.bot.Self.UserName,
		}))
		return
	}

	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.WithError(err).Error("Failed to save setup session")
		h.sendText(adminID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}
	h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgSetupCheckDM, nil))
}

// handleCancelSetup serves /cancel_setup from any chat and any state.
func (h *Handler) handleCancelSetup(ctx context.Context, msg *tgbotapi.Message) {
	adminID := msg.From.ID
	sess, err := h.sessions.Get(ctx, adminID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session")
		return
	}

	lang := h.dmLang(ctx, adminID)
	if sess == nil {
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSetupNothingCancel, nil))
		return
	}

	h.clearSession(ctx, adminID)
	h.metrics.RecordSetupOutcome("cancelled")
	h.sendText(msg.Chat.ID, h.localizer.Get(sess.Language, i18n.MsgSetupCancelled, nil))
}

// handleSessionText routes a typed message into the active dialog, if any.
// Returns false when the message belongs to normal handling.
func (h *Handler) handleSessionText(ctx context.Context, msg *tgbotapi.Message) bool {
	sess, err := h.sessions.Get(ctx, msg.From.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session")
		return false
	}
	if sess == nil {
		return false
	}

	switch sess.State {
	case models.StateAwaitingAPIKey, models.StateAwaitingPrompt,
		models.StateAwaitingModel, models.StateConfirm, models.StateAwaitingOverwrite:
		if !msg.Chat.IsPrivate() {
			return false
		}
	case models.StateAwaitingPrefix, models.StateAwaitingWelcome:
		if msg.Chat.ID != sess.GroupID {
			return false
		}
	default:
		return false
	}

	switch sess.State {
	case models.StateAwaitingOverwrite:
		// Buttons only; remind the admin which question is pending.
		h.sendText(msg.Chat.ID, h.localizer.Get(sess.Language, i18n.MsgSetupOverwriteAsk, map[string]interface{}{
			"GroupName": sess.GroupName,
		}))
	case models.StateAwaitingAPIKey:
		h.consumeAPIKey(ctx, sess, msg)
	case models.StateAwaitingPrompt:
		h.consumePrompt(ctx, sess, msg)
	case models.StateAwaitingModel:
		h.sendText(msg.Chat.ID, h.localizer.Get(sess.Language, i18n.MsgSetupModelFromList, nil))
		h.sendModelKeyboard(sess)
	case models.StateConfirm:
		h.sendConfirmation(sess, 0)
	case models.StateAwaitingPrefix:
		h.consumePrefix(ctx, sess, msg)
	case models.StateAwaitingWelcome:
		h.consumeWelcomeText(ctx, sess, msg)
	}
	return true
}

func (h *Handler) consumeAPIKey(ctx context.Context, sess *models.SetupSession, msg *tgbotapi.Message) {
	key := strings.TrimSpace(msg.Text)
	lang := sess.Language

	if !strings.HasPrefix(key, keyPrefix) {
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSetupKeyBadPrefix, nil))
		return
	}

	h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSetupKeyValidating, nil))
	ok, reason := h.ai.ValidateAPIKey(ctx, key)
	if !ok {
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSetupKeyInvalid, map[string]interface{}{
			"Reason": reason,
		}))
		return
	}

	sess.APIKey = key
	sess.State = models.StateAwaitingPrompt
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.WithError(err).Error("Failed to save setup session")
		h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}
	h.sendText(msg.Chat.ID, h.localizer.Get(lang, i18n.MsgSetupAskPrompt, nil))
}

func (h *Handler) consumePrompt(ctx context.Context, sess *models.SetupSession, msg *tgbotapi.Message) {
	prompt := strings.TrimSpace(msg.Text)
	if prompt == "" {
		h.sendText(msg.Chat.ID, h.localizer.Get(sess.Language, i18n.MsgSetupPromptEmpty, nil))
		return
	}

	sess.Prompt = prompt
	sess.State = models.StateAwaitingModel
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.WithError(err).Error("Failed to save setup session")
		h.sendText(msg.Chat.ID, h.localizer.Get(sess.Language, i18n.MsgGenericError, nil))
		return
	}
	h.sendModelKeyboard(sess)
}

func (h *Handler) sendModelKeyboard(sess *models.SetupSession) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ai.AvailableModels))
	for _, model := range ai.AvailableModels {
		label := model.DisplayName
		if model.ID == ai.DefaultModel {
			label = "⭐ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, ModelPick{ModelID: model.ID}.Encode()),
		))
	}
	h.sendWithKeyboard(sess.AdminID,
		h.localizer.Get(sess.Language, i18n.MsgSetupAskModel, nil),
		tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// sendConfirmation shows the staged setup for review. When messageID is
// non-zero the existing dialog message is edited instead.
func (h *Handler) sendConfirmation(sess *models.SetupSession, messageID int) {
	lang := sess.Language
	text := h.localizer.Get(lang, i18n.MsgSetupConfirm, map[string]interface{}{
		"GroupName": sess.GroupName,
		"MaskedKey": maskKey(sess.APIKey),
		"Prompt":    sess.Prompt,
		"Model":     ai.ModelDisplayName(sess.Model),
	})
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonSave, nil),
				ConfirmDecision{Choice: "save"}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonEdit, nil),
				ConfirmDecision{Choice: "edit"}.Encode()),
			tgbotapi.NewInlineKeyboardButtonData(
				h.localizer.Get(lang, i18n.MsgButtonCancel, nil),
				ConfirmDecision{Choice: "cancel"}.Encode()),
		),
	)
	if messageID != 0 {
		h.editWithKeyboard(sess.AdminID, messageID, text, keyboard)
	} else {
		h.sendWithKeyboard(sess.AdminID, text, keyboard)
	}
}

// handleOverwriteDecision resolves the yes/no question for groups that
// already have a credential.
func (h *Handler) handleOverwriteDecision(ctx context.Context, cq *tgbotapi.CallbackQuery, action OverwriteDecision) {
	sess := h.requireSessionState(ctx, cq, models.StateAwaitingOverwrite)
	if sess == nil {
		return
	}

	if !action.Accept {
		h.clearSession(ctx, sess.AdminID)
		h.metrics.RecordSetupOutcome("cancelled")
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(sess.Language, i18n.MsgSetupCancelled, nil))
		h.answerCallback(cq.ID, "")
		return
	}

	sess.State = models.StateAwaitingAPIKey
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.WithError(err).Error("Failed to save setup session")
		h.answerCallback(cq.ID, h.localizer.Get(sess.Language, i18n.MsgGenericError, nil))
		return
	}
	h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
		h.localizer.Get(sess.Language, i18n.MsgSetupAskKey, map[string]interface{}{
			"GroupName": sess.GroupName,
		}))
	h.answerCallback(cq.ID, "")
}

// handleModelPick accepts a model chosen from the keyboard.
func (h *Handler) handleModelPick(ctx context.Context, cq *tgbotapi.CallbackQuery, action ModelPick) {
	sess := h.requireSessionState(ctx, cq, models.StateAwaitingModel)
	if sess == nil {
		return
	}

	if !ai.KnownModel(action.ModelID) {
		h.answerCallback(cq.ID, h.localizer.Get(sess.Language, i18n.MsgSetupModelFromList, nil))
		return
	}

	sess.Model = action.ModelID
	sess.State = models.StateConfirm
	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.WithError(err).Error("Failed to save setup session")
		h.answerCallback(cq.ID, h.localizer.Get(sess.Language, i18n.MsgGenericError, nil))
		return
	}
	h.sendConfirmation(sess, cq.Message.MessageID)
	h.answerCallback(cq.ID, "")
}

// handleConfirmDecision resolves the final save/edit/cancel screen.
func (h *Handler) handleConfirmDecision(ctx context.Context, cq *tgbotapi.CallbackQuery, action ConfirmDecision) {
	sess := h.requireSessionState(ctx, cq, models.StateConfirm)
	if sess == nil {
		return
	}

	switch action.Choice {
	case "cancel":
		h.clearSession(ctx, sess.AdminID)
		h.metrics.RecordSetupOutcome("cancelled")
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(sess.Language, i18n.MsgSetupCancelled, nil))
		h.answerCallback(cq.ID, "")
	case "edit":
		// Back to the top of the dialog; staged values stay visible in
		// the session until overwritten.
		sess.State = models.StateAwaitingAPIKey
		if err := h.sessions.Save(ctx, sess); err != nil {
			h.logger.WithError(err).Error("Failed to save setup session")
			h.answerCallback(cq.ID, h.localizer.Get(sess.Language, i18n.MsgGenericError, nil))
			return
		}
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(sess.Language, i18n.MsgSetupAskKey, map[string]interface{}{
				"GroupName": sess.GroupName,
			}))
		h.answerCallback(cq.ID, "")
	case "save":
		h.finalizeSetup(ctx, cq, sess)
	}
}

// setupConfigUpdate stages the fields the setup dialog collects. IsActive
// is not among them: a fresh row starts inactive and an existing row keeps
// whatever state it had.
func setupConfigUpdate(sess *models.SetupSession, encrypted string) storage.ConfigUpdate {
	return storage.ConfigUpdate{
		EncryptedAPIKey: &encrypted,
		SystemPrompt:    &sess.Prompt,
		Model:           &sess.Model,
		LanguageCode:    &sess.Language,
	}
}

func (h *Handler) finalizeSetup(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *models.SetupSession) {
	lang := sess.Language

	// The session should be complete here; a hole means lost state and
	// the dialog cannot be trusted any further.
	if sess.APIKey == "" || sess.Prompt == "" || sess.Model == "" {
		h.logger.WithFields(logrus.Fields{
			"admin_id": sess.AdminID,
			"group_id": sess.GroupID,
		}).Error("Setup session missing staged fields at save")
		h.clearSession(ctx, sess.AdminID)
		h.metrics.RecordSetupOutcome("aborted")
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgSetupDataMissing, nil))
		h.answerCallback(cq.ID, "")
		return
	}

	encrypted := h.cipher.Encrypt(sess.APIKey)
	if encrypted == "" {
		h.logger.WithField("group_id", sess.GroupID).Error("Credential encryption failed")
		h.clearSession(ctx, sess.AdminID)
		h.metrics.RecordSetupOutcome("aborted")
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgSetupSaveFailed, nil))
		h.answerCallback(cq.ID, "")
		return
	}

	err := h.store.SaveConfig(ctx, sess.GroupID, sess.AdminID, setupConfigUpdate(sess, encrypted))

	// The session is finished either way; a failed save must not leave a
	// dialog stuck on the confirmation screen.
	h.clearSession(ctx, sess.AdminID)

	if err != nil {
		h.logger.WithError(err).WithField("group_id", sess.GroupID).Error("Failed to persist setup")
		h.metrics.RecordSetupOutcome("aborted")
		h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
			h.localizer.Get(lang, i18n.MsgSetupSaveFailed, nil))
		h.answerCallback(cq.ID, "")
		return
	}

	h.metrics.RecordSetupOutcome("saved")
	h.editText(cq.Message.Chat.ID, cq.Message.MessageID,
		h.localizer.Get(lang, i18n.MsgSetupSaved, map[string]interface{}{
			"GroupName": sess.GroupName,
		}))
	h.answerCallback(cq.ID, "")

	// Best effort group announcement.
	h.sendText(sess.GroupID, h.localizer.Get(lang, i18n.MsgSetupGroupNotified, map[string]interface{}{
		"Model": ai.ModelDisplayName(sess.Model),
	}))
}

// requireSessionState loads the caller's session and checks it is in the
// expected state; stale buttons get a toast and nil back.
func (h *Handler) requireSessionState(ctx context.Context, cq *tgbotapi.CallbackQuery, state string) *models.SetupSession {
	sess, err := h.sessions.Get(ctx, cq.From.ID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session")
		h.answerCallback(cq.ID, "")
		return nil
	}
	if sess == nil || sess.State != state {
		lang := h.dmLang(ctx, cq.From.ID)
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgSetupNothingCancel, nil))
		return nil
	}
	return sess
}

func (h *Handler) clearSession(ctx context.Context, adminID int64) {
	if err := h.sessions.Delete(ctx, adminID); err != nil {
		h.logger.WithError(err).WithField("admin_id", adminID).Warn("Failed to clear session")
	}
}
