package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/crypto"
	"github.com/ulya2402/Wisedebot/internal/i18n"
	"github.com/ulya2402/Wisedebot/internal/middleware"
	"github.com/ulya2402/Wisedebot/internal/services/ai"
	"github.com/ulya2402/Wisedebot/internal/services/storage"
	"github.com/ulya2402/Wisedebot/internal/session"
)

// Handler wires every bot interaction: commands, callbacks, dialogs,
// moderation, triggers and welcomes. Methods are grouped per concern in
// the sibling files.
type Handler struct {
	bot       *tgbotapi.BotAPI
	cfg       *config.Config
	store     *storage.Store
	sessions  *session.Manager
	ai        *ai.Client
	cipher    *crypto.Cipher
	localizer *i18n.Localizer
	limiter   middleware.RateLimiter
	metrics   *middleware.Metrics
	logger    *logrus.Logger
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	store *storage.Store,
	sessions *session.Manager,
	aiClient *ai.Client,
	cipher *crypto.Cipher,
	localizer *i18n.Localizer,
	limiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		bot:       bot,
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		ai:        aiClient,
		cipher:    cipher,
		localizer: localizer,
		limiter:   limiter,
		metrics:   metrics,
		logger:    logger,
	}
}

// groupLang resolves the display language inside a group chat.
func (h *Handler) groupLang(ctx context.Context, groupID int64) string {
	return h.store.GetGroupLanguage(ctx, groupID)
}

// dmLang resolves the display language for a private chat: an active setup
// session wins, then the user preference, then the default.
func (h *Handler) dmLang(ctx context.Context, userID int64) string {
	if sess, err := h.sessions.Get(ctx, userID); err == nil && sess != nil && sess.Language != "" {
		return sess.Language
	}
	if pref := h.store.GetUserLanguage(ctx, userID); pref != "" {
		return pref
	}
	return h.localizer.DefaultLanguage()
}

// userLang resolves a user-facing language outside any chat context.
func (h *Handler) userLang(ctx context.Context, userID int64) string {
	if pref := h.store.GetUserLanguage(ctx, userID); pref != "" {
		return pref
	}
	return h.localizer.DefaultLanguage()
}

// isGroupAdmin reports whether userID administers the chat.
func (h *Handler) isGroupAdmin(chatID, userID int64) bool {
	member, err := h.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Warn("Failed to check admin status")
		return false
	}
	return member.Status == "creator" || member.Status == "administrator"
}

// chatAdmins lists the chat's administrators (bots excluded).
func (h *Handler) chatAdmins(chatID int64) ([]tgbotapi.ChatMember, error) {
	admins, err := h.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat admins: %w", err)
	}
	out := admins[:0]
	for _, admin := range admins {
		if admin.User != nil && !admin.User.IsBot {
			out = append(out, admin)
		}
	}
	return out, nil
}

// sendText sends a plain message, logging delivery failures.
func (h *Handler) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send message")
	}
}

// sendHTML sends an HTML-formatted message, falling back to plain text
// when Telegram rejects the markup.
func (h *Handler) sendHTML(chatID int64, html string) {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("HTML send failed, retrying as plain text")
		h.sendText(chatID, html)
	}
}

// sendWithKeyboard sends an HTML message with an inline keyboard.
func (h *Handler) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send keyboard message")
	}
}

// editWithKeyboard rewrites a callback's origin message in place.
func (h *Handler) editWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = &keyboard
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to edit message")
	}
}

// editText rewrites a callback's origin message without a keyboard.
func (h *Handler) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(edit); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Warn("Failed to edit message")
	}
}

// answerCallback acknowledges a callback query, optionally with a toast.
func (h *Handler) answerCallback(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.logger.WithError(err).Warn("Failed to answer callback")
	}
}

// alertCallback acknowledges a callback query with a popup alert.
func (h *Handler) alertCallback(callbackID, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		h.logger.WithError(err).Warn("Failed to answer callback")
	}
}

// replyText replies to a specific message.
func (h *Handler) replyText(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send reply")
	}
}

// maskKey renders a credential for display: first seven characters, then
// four asterisks.
func maskKey(key string) string {
	if len(key) <= 7 {
		return key + "****"
	}
	return key[:7] + "****"
}

// onOff renders a toggle state for button labels.
func onOff(enabled bool) string {
	if enabled {
		return "✅"
	}
	return "❌"
}

// mentionHTML builds an HTML user mention.
func mentionHTML(userID int64, name string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, escapeName(name))
}

func escapeName(name string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(name)
}

func fullName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.LastName == "" {
		return user.FirstName
	}
	return user.FirstName + " " + user.LastName
}
