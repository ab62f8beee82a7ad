package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/ulya2402/Wisedebot/internal/models"
)

func TestParseSendMsg(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantGroup int64
		wantTopic int
		wantText  string
		wantOK    bool
	}{
		{"group and text", "-1001234 hello there", -1001234, 0, "hello there", true},
		{"group topic text", "-1001234 55 hello", -1001234, 55, "hello", true},
		{"positive group id", "42 ping", 42, 0, "ping", true},
		{"padded", "  -5 hi  ", -5, 0, "hi", true},
		{"text keeps inner digits", "-5 7 meet at 10", -5, 7, "meet at 10", true},
		{"missing text", "-1001234", 0, 0, "", false},
		{"empty", "", 0, 0, "", false},
		{"not a number", "groupid hello", 0, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, topic, text, ok := parseSendMsg(tt.args)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantGroup, group)
			assert.Equal(t, tt.wantTopic, topic)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func newTriggerTestHandler() *Handler {
	return &Handler{
		bot: &tgbotapi.BotAPI{Self: tgbotapi.User{ID: 999, UserName: "wisedebot"}},
	}
}

func groupMsg(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		From: &tgbotapi.User{ID: 1},
	}
}

func TestDetectTriggerCustomPrefix(t *testing.T) {
	h := newTriggerTestHandler()
	cfg := &models.GroupConfig{TriggerCustomPrefix: "!ai"}

	q, ok := h.detectTrigger(groupMsg("!ai what is Go?"), cfg)
	assert.True(t, ok)
	assert.Equal(t, "what is Go?", q)

	_, ok = h.detectTrigger(groupMsg("!ai"), cfg)
	assert.False(t, ok, "prefix with no question is not a trigger")

	_, ok = h.detectTrigger(groupMsg("hey !ai question"), cfg)
	assert.False(t, ok, "prefix must lead the message")
}

func TestDetectTriggerMention(t *testing.T) {
	h := newTriggerTestHandler()
	cfg := &models.GroupConfig{TriggerMentionEnabled: true}

	q, ok := h.detectTrigger(groupMsg("@wisedebot what is Go?"), cfg)
	assert.True(t, ok)
	assert.Equal(t, "what is Go?", q)

	q, ok = h.detectTrigger(groupMsg("what is Go? @wisedebot"), cfg)
	assert.True(t, ok)
	assert.Equal(t, "what is Go?", q)

	_, ok = h.detectTrigger(groupMsg("@wisedebot"), cfg)
	assert.False(t, ok, "bare mention is not a question")
}

func TestDetectTriggerMentionDisabled(t *testing.T) {
	h := newTriggerTestHandler()
	cfg := &models.GroupConfig{TriggerMentionEnabled: false}

	_, ok := h.detectTrigger(groupMsg("@wisedebot hello"), cfg)
	assert.False(t, ok)
}

func TestDetectTriggerReplyToBot(t *testing.T) {
	h := newTriggerTestHandler()
	cfg := &models.GroupConfig{TriggerMentionEnabled: true}

	msg := groupMsg("and what about Rust?")
	msg.ReplyToMessage = &tgbotapi.Message{From: &tgbotapi.User{ID: 999}}

	q, ok := h.detectTrigger(msg, cfg)
	assert.True(t, ok)
	assert.Equal(t, "and what about Rust?", q)

	msg.ReplyToMessage.From.ID = 5 // reply to a human
	_, ok = h.detectTrigger(msg, cfg)
	assert.False(t, ok)
}

func TestDetectTriggerNoConfig(t *testing.T) {
	h := newTriggerTestHandler()

	_, ok := h.detectTrigger(groupMsg("@wisedebot hi"), nil)
	assert.False(t, ok)
}
