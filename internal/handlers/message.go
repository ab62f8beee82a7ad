package handlers

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/models"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
	"github.com/ulya2402/Wisedebot/pkg/markdown"
)

// Telegram caps messages at 4096 characters; chunk with headroom.
const responseChunkLimit = 4000

// HandleMessage processes every non-command message.
func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.metrics.RecordMessageReceived(msg.Chat.Type)

	if len(msg.NewChatMembers) > 0 {
		h.handleNewMembers(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	// An active dialog claims the message first.
	if h.handleSessionText(ctx, msg) {
		return
	}
	if msg.Chat.IsPrivate() {
		return
	}

	cfg, err := h.store.GetConfig(ctx, msg.Chat.ID)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", msg.Chat.ID).Error("Failed to load group config")
		return
	}

	// Moderation and trigger detection are independent: a flagged message
	// can still be answered.
	h.moderateMessage(ctx, msg, cfg)

	if question, ok := h.detectTrigger(msg, cfg); ok {
		h.answerQuestion(ctx, msg, cfg, question)
	}
}

// detectTrigger checks the custom prefix, an @-mention, and a reply to
// the bot. The /ask_ai command arrives through command dispatch instead.
func (h *Handler) detectTrigger(msg *tgbotapi.Message, cfg *models.GroupConfig) (string, bool) {
	if cfg == nil {
		return "", false
	}
	text := strings.TrimSpace(msg.Text)

	if cfg.TriggerCustomPrefix != "" && strings.HasPrefix(text, cfg.TriggerCustomPrefix) {
		question := strings.TrimSpace(strings.TrimPrefix(text, cfg.TriggerCustomPrefix))
		if question != "" {
			return question, true
		}
	}

	if cfg.TriggerMentionEnabled {
		mention := "@" + h.bot.Self.UserName
		if strings.Contains(text, mention) {
			question := strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
			if question != "" {
				return question, true
			}
		}
		if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
			msg.ReplyToMessage.From.ID == h.bot.Self.ID {
			return text, true
		}
	}

	return "", false
}

// answerQuestion runs the assistant flow for one question.
func (h *Handler) answerQuestion(ctx context.Context, msg *tgbotapi.Message, cfg *models.GroupConfig, question string) {
	groupID := msg.Chat.ID
	lang := h.groupLang(ctx, groupID)

	if cfg == nil || cfg.EncryptedAPIKey == "" {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAINotConfigured, nil))
		return
	}
	if !cfg.IsActive {
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgAIDisabled, nil))
		return
	}

	if !h.limiter.Allow(msg.From.ID) {
		h.metrics.RecordRateLimitExceeded()
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgRateLimitExceeded, nil))
		return
	}

	apiKey := h.cipher.Decrypt(cfg.EncryptedAPIKey)
	if apiKey == "" {
		h.logger.WithField("group_id", groupID).Error("Stored credential cannot be decrypted")
		h.replyText(groupID, msg.MessageID, h.localizer.Get(lang, i18n.MsgCredentialBroken, nil))
		return
	}

	thinking := tgbotapi.NewMessage(groupID, h.localizer.Get(lang, i18n.MsgThinking, nil))
	thinking.ReplyToMessageID = msg.MessageID
	placeholder, err := h.bot.Send(thinking)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", groupID).Error("Failed to send thinking message")
		return
	}

	messages := h.buildConversation(ctx, cfg, question)

	start := time.Now()
	result := h.ai.Complete(ctx, apiKey, cfg.Model, messages)
	if tag, detail, isErr := result.IsProviderError(); isErr {
		h.metrics.RecordCompletion(cfg.Model, "error", time.Since(start))
		h.logger.WithFields(logrus.Fields{
			"group_id": groupID,
			"tag":      tag,
			"detail":   detail,
		}).Error("Completion failed")

		msgID := i18n.MsgProviderError
		if tag == ai.ErrPrefixUnexpected {
			msgID = i18n.MsgUnexpectedError
		}
		h.editText(groupID, placeholder.MessageID, h.localizer.Get(lang, msgID, map[string]interface{}{
			"Detail": detail,
		}))
		return
	}
	h.metrics.RecordCompletion(cfg.Model, "success", time.Since(start))

	// History only records successful exchanges.
	if err := h.store.AppendHistory(ctx, groupID, models.RoleUser, question); err != nil {
		h.logger.WithError(err).Warn("Failed to store user turn")
	}
	if err := h.store.AppendHistory(ctx, groupID, models.RoleAssistant, result.MainResponse); err != nil {
		h.logger.WithError(err).Warn("Failed to store assistant turn")
	}

	h.deliverAnswer(groupID, placeholder.MessageID, lang, result.MainResponse, result.Thoughts)
}

func (h *Handler) buildConversation(ctx context.Context, cfg *models.GroupConfig, question string) []models.Message {
	messages := []models.Message{{Role: models.RoleSystem, Content: cfg.SystemPrompt}}

	history, err := h.store.GetHistory(ctx, cfg.GroupID, h.cfg.History.Limit)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", cfg.GroupID).Warn("Failed to load history, answering without it")
	} else {
		messages = append(messages, history...)
	}

	return append(messages, models.Message{Role: models.RoleUser, Content: question})
}

// deliverAnswer edits the placeholder into the first chunk, sends the
// rest, and attaches the thoughts button to the final chunk.
func (h *Handler) deliverAnswer(groupID int64, placeholderID int, lang, answer, thoughts string) {
	html := markdown.ToTelegramHTML(answer)
	chunks := markdown.Chunk(html, responseChunkLimit)

	var keyboard *tgbotapi.InlineKeyboardMarkup
	if thoughts != "" {
		token := h.sessions.StashThoughts(thoughts)
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(
					h.localizer.Get(lang, i18n.MsgShowThoughts, nil),
					ShowThoughts{Token: token}.Encode()),
			),
		)
		keyboard = &kb
	}

	for i, chunk := range chunks {
		last := i == len(chunks)-1

		if i == 0 {
			edit := tgbotapi.NewEditMessageText(groupID, placeholderID, chunk)
			edit.ParseMode = tgbotapi.ModeHTML
			if last && keyboard != nil {
				edit.ReplyMarkup = keyboard
			}
			if _, err := h.bot.Send(edit); err != nil {
				// The HTML may be the problem; degrade to plain text.
				h.logger.WithError(err).Warn("HTML edit failed, retrying plain")
				plain := tgbotapi.NewEditMessageText(groupID, placeholderID, chunk)
				if last && keyboard != nil {
					plain.ReplyMarkup = keyboard
				}
				if _, err := h.bot.Send(plain); err != nil {
					h.logger.WithError(err).Error("Failed to deliver answer")
				}
			}
			continue
		}

		send := tgbotapi.NewMessage(groupID, chunk)
		send.ParseMode = tgbotapi.ModeHTML
		if last && keyboard != nil {
			send.ReplyMarkup = keyboard
		}
		if _, err := h.bot.Send(send); err != nil {
			h.logger.WithError(err).Warn("HTML send failed, retrying plain")
			plain := tgbotapi.NewMessage(groupID, chunk)
			if last && keyboard != nil {
				plain.ReplyMarkup = keyboard
			}
			if _, err := h.bot.Send(plain); err != nil {
				h.logger.WithError(err).Error("Failed to deliver answer chunk")
			}
		}
	}
}

// handleShowThoughts reveals a stashed reasoning blob exactly once.
func (h *Handler) handleShowThoughts(ctx context.Context, cq *tgbotapi.CallbackQuery, action ShowThoughts) {
	lang := h.groupLang(ctx, cq.Message.Chat.ID)
	if cq.Message.Chat.IsPrivate() {
		lang = h.dmLang(ctx, cq.From.ID)
	}

	thoughts, ok := h.sessions.PopThoughts(action.Token)
	if !ok {
		h.alertCallback(cq.ID, h.localizer.Get(lang, i18n.MsgThoughtsExpired, nil))
		return
	}

	h.answerCallback(cq.ID, "")
	for _, chunk := range markdown.Chunk("🧠 "+thoughts, responseChunkLimit) {
		h.sendText(cq.Message.Chat.ID, chunk)
	}
}
