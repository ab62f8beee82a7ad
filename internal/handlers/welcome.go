package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/models"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
)

// renderWelcomeTemplate substitutes the supported placeholders. Unknown
// placeholders are left literal so typos stay visible to the admin.
func renderWelcomeTemplate(template string, user *tgbotapi.User, groupName string) string {
	r := strings.NewReplacer(
		"{{user_mention}}", mentionHTML(user.ID, fullName(user)),
		"{{user_first_name}}", escapeName(user.FirstName),
		"{{user_last_name}}", escapeName(user.LastName),
		"{{user_full_name}}", escapeName(fullName(user)),
		"{{group_name}}", escapeName(groupName),
	)
	return r.Replace(template)
}

// handleNewMembers greets joining users per the group's welcome settings.
func (h *Handler) handleNewMembers(ctx context.Context, msg *tgbotapi.Message) {
	groupID := msg.Chat.ID

	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]

		if member.ID == h.bot.Self.ID {
			// The bot itself was added; introduce it in the default
			// language since the group has no config yet.
			h.sendHTML(groupID, h.localizer.Get(h.localizer.DefaultLanguage(), i18n.MsgBotAddedToGroup, map[string]interface{}{
				"GroupName": msg.Chat.Title,
			}))
			continue
		}
		if member.IsBot {
			continue
		}

		cfg, err := h.store.GetConfig(ctx, groupID)
		if err != nil {
			h.logger.WithError(err).WithField("group_id", groupID).Warn("Failed to load config for welcome")
			return
		}
		if cfg == nil || !cfg.WelcomeEnabled {
			return
		}

		h.welcomeUser(ctx, cfg, msg.Chat.Title, member)
	}
}

// aiWelcomeEligible reports whether a group greets with a generated
// message. AI welcomes need an active assistant with a stored credential,
// not just a configured one.
func aiWelcomeEligible(cfg *models.GroupConfig) bool {
	return cfg.WelcomeAIEnabled && cfg.IsActive && cfg.EncryptedAPIKey != ""
}

func (h *Handler) welcomeUser(ctx context.Context, cfg *models.GroupConfig, groupName string, user *tgbotapi.User) {
	lang := h.groupLang(ctx, cfg.GroupID)

	if aiWelcomeEligible(cfg) {
		if text, ok := h.generateAIWelcome(ctx, cfg, groupName, user); ok {
			h.sendHTML(cfg.GroupID, text)
			h.metrics.RecordWelcomeSent("ai")
			return
		}
		// AI generation failed: fall back to the manual template when one
		// exists, otherwise stay silent.
		if cfg.CustomWelcomeMessage == "" {
			h.logger.WithField("group_id", cfg.GroupID).Warn("AI welcome failed and no manual template set")
			return
		}
	}

	template := cfg.CustomWelcomeMessage
	kind := "manual"
	if template == "" {
		template = h.localizer.Get(lang, i18n.MsgWelcomeDefault, nil)
		kind = "default"
	}
	h.sendHTML(cfg.GroupID, renderWelcomeTemplate(template, user, groupName))
	h.metrics.RecordWelcomeSent(kind)
}

func (h *Handler) generateAIWelcome(ctx context.Context, cfg *models.GroupConfig, groupName string, user *tgbotapi.User) (string, bool) {
	apiKey := h.cipher.Decrypt(cfg.EncryptedAPIKey)
	if apiKey == "" {
		return "", false
	}

	instruction := cfg.AIWelcomePrompt
	if instruction == "" {
		instruction = "Write a single short, warm welcome message for a new member of a group chat. Address them directly. Do not add explanations or quotation marks."
	}
	request := fmt.Sprintf("New member: %s. Group: %s.", fullName(user), groupName)

	result := h.ai.Complete(ctx, apiKey, ai.WelcomeModel, []models.Message{
		{Role: models.RoleSystem, Content: instruction},
		{Role: models.RoleUser, Content: request},
	})
	if _, detail, isErr := result.IsProviderError(); isErr {
		h.logger.WithFields(logrus.Fields{
			"group_id": cfg.GroupID,
			"detail":   detail,
		}).Warn("AI welcome generation failed")
		return "", false
	}
	if strings.TrimSpace(result.MainResponse) == "" {
		return "", false
	}
	return renderWelcomeTemplate(result.MainResponse, user, groupName), true
}

// handleWelcomeCommand opens the welcome settings menu in the group.
func (h *Handler) handleWelcomeCommand(ctx context.Context, msg *tgbotapi.Message) {
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
		h.localizer.Get(lang, i18n.MsgWelcomeMenuTitle, nil),
		h.welcomeKeyboard(lang, cfg))
}

func (h *Handler) welcomeKeyboard(lang string, cfg *models.GroupConfig) tgbotapi.InlineKeyboardMarkup {
	enabled, aiEnabled, hasText := false, false, false
	if cfg != nil {
		enabled = cfg.WelcomeEnabled
		aiEnabled = cfg.WelcomeAIEnabled
		hasText = cfg.CustomWelcomeMessage != ""
	}

	toggleOp := "on"
	toggleMsg := i18n.MsgWelcomeEnabled
	if enabled {
		toggleOp = "off"
		toggleMsg = i18n.MsgWelcomeDisabled
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				onOff(enabled)+" "+h.localizer.Get(lang, toggleMsg, nil),
				WelcomeAction{Op: toggleOp}.Encode()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				onOff(aiEnabled)+" AI",
				WelcomeAction{Op: "ai_toggle"}.Encode()),
		),
	}

	// Manual-text controls make no sense while the AI writes the welcome.
	if !aiEnabled {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				"✏️ "+h.localizer.Get(lang, i18n.MsgWelcomeTextAsk, nil),
				WelcomeAction{Op: "text_set"}.Encode()),
		))
		if hasText {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					"🗑 "+h.localizer.Get(lang, i18n.MsgWelcomeTextRemoved, nil),
					WelcomeAction{Op: "text_remove"}.Encode()),
			))
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			h.localizer.Get(lang, i18n.MsgButtonDone, nil),
			MenuDone{Menu: "wel"}.Encode()),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// handleWelcomeAction services the welcome menu buttons.
func (h *Handler) handleWelcomeAction(ctx context.Context, cq *tgbotapi.CallbackQuery, action WelcomeAction) {
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
	switch action.Op {
	case "on", "off":
		enabled := action.Op == "on"
		upd.WelcomeEnabled = &enabled
		if enabled {
			toast = h.localizer.Get(lang, i18n.MsgWelcomeEnabled, nil)
		} else {
			toast = h.localizer.Get(lang, i18n.MsgWelcomeDisabled, nil)
		}
	case "ai_toggle":
		aiEnabled := cfg == nil || !cfg.WelcomeAIEnabled
		upd.WelcomeAIEnabled = &aiEnabled
		if aiEnabled {
			toast = h.localizer.Get(lang, i18n.MsgWelcomeAIOn, nil)
		} else {
			toast = h.localizer.Get(lang, i18n.MsgWelcomeAIOff, nil)
		}
	case "text_remove":
		empty := ""
		upd.CustomWelcomeMessage = &empty
		toast = h.localizer.Get(lang, i18n.MsgWelcomeTextRemoved, nil)
	case "text_set":
		if cfg != nil && cfg.WelcomeAIEnabled {
			h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgWelcomeTextBlockedAI, nil))
			return
		}
		sess := &models.SetupSession{
			AdminID:   cq.From.ID,
			GroupID:   groupID,
			GroupName: cq.Message.Chat.Title,
			Language:  lang,
			State:     models.StateAwaitingWelcome,
		}
		if err := h.sessions.Save(ctx, sess); err != nil {
			h.logger.WithError(err).Error("Failed to save session")
			h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
			return
		}
		h.answerCallback(cq.ID, "")
		h.sendText(groupID, h.localizer.Get(lang, i18n.MsgWelcomeTextAsk, nil))
		return
	}

	if err := h.store.SaveConfig(ctx, groupID, cq.From.ID, upd); err != nil {
		h.logger.WithError(err).Error("Failed to save welcome setting")
		h.answerCallback(cq.ID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.answerCallback(cq.ID, toast)
	cfg, err = h.store.GetConfig(ctx, groupID)
	if err != nil {
		return
	}
	h.editWithKeyboard(groupID, cq.Message.MessageID,
		h.localizer.Get(lang, i18n.MsgWelcomeMenuTitle, nil),
		h.welcomeKeyboard(lang, cfg))
}

// consumeWelcomeText accepts the typed manual welcome template.
func (h *Handler) consumeWelcomeText(ctx context.Context, sess *models.SetupSession, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	lang := sess.Language

	if text == "" {
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgWelcomeTextEmpty, nil))
		return
	}

	if err := h.store.SaveConfig(ctx, sess.GroupID, sess.AdminID, storage.ConfigUpdate{CustomWelcomeMessage: &text}); err != nil {
		h.logger.WithError(err).Error("Failed to save welcome text")
		h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgGenericError, nil))
		return
	}

	h.clearSession(ctx, sess.AdminID)
	h.replyText(msg.Chat.ID, msg.MessageID, h.localizer.Get(lang, i18n.MsgWelcomeTextSet, nil))
}
