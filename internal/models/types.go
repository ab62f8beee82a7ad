package models

import (
	"time"
)

// Message is a single turn sent to the completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles used when building completion requests and history rows.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GroupConfig is the per-group configuration row. Trigger toggles default
// to enabled and moderation to disabled so a freshly configured group only
// answers when asked.
type GroupConfig struct {
	GroupID                   int64  `gorm:"primaryKey;column:group_id"`
	LanguageCode              string `gorm:"column:language_code"`
	EncryptedAPIKey           string `gorm:"column:encrypted_groq_api_key"`
	SystemPrompt              string `gorm:"column:system_prompt"`
	Model                     string `gorm:"column:groq_model"`
	IsActive                  bool   `gorm:"column:is_active"`
	TriggerCommandEnabled     bool   `gorm:"column:ai_trigger_command_enabled;default:true"`
	TriggerMentionEnabled     bool   `gorm:"column:ai_trigger_mention_enabled;default:true"`
	TriggerCustomPrefix       string `gorm:"column:ai_trigger_custom_prefix"`
	WelcomeEnabled            bool   `gorm:"column:welcome_message_enabled"`
	CustomWelcomeMessage      string `gorm:"column:custom_welcome_message"`
	WelcomeAIEnabled          bool   `gorm:"column:ai_welcome_enabled"`
	AIWelcomePrompt           string `gorm:"column:ai_welcome_prompt"`
	ModerationLevel           string `gorm:"column:moderation_level;default:disabled"`
	ModerationAction          string `gorm:"column:moderation_action;default:warn"`
	ModerationTextCategories  string `gorm:"column:moderation_text_categories"`
	ModerationImageCategories string `gorm:"column:moderation_image_categories"`
	ConfiguredByUserID        int64  `gorm:"column:configured_by_user_id"`
	LastUpdatedAt             string `gorm:"column:last_updated_at"`
}

func (GroupConfig) TableName() string { return "group_configs" }

// ConversationMessage is one stored turn of a group's assistant history.
type ConversationMessage struct {
	ID        uint      `gorm:"primaryKey"`
	GroupID   int64     `gorm:"column:group_id;index"`
	Role      string    `gorm:"column:role"`
	Content   string    `gorm:"column:content"`
	Timestamp time.Time `gorm:"column:timestamp;autoCreateTime"`
}

func (ConversationMessage) TableName() string { return "conversation_history" }

// UserPreference stores a user's private-chat language choice, which takes
// precedence over the group language when answering that user.
type UserPreference struct {
	UserID        int64  `gorm:"primaryKey;column:user_id"`
	LanguageCode  string `gorm:"column:language_code"`
	LastUpdatedAt string `gorm:"column:last_updated_at"`
}

func (UserPreference) TableName() string { return "user_preferences" }

// Setup dialog states. A session is always in exactly one of these.
const (
	StateAwaitingOverwrite = "awaiting_overwrite_confirmation"
	StateAwaitingAPIKey    = "awaiting_groq_key"
	StateAwaitingPrompt    = "awaiting_system_prompt"
	StateAwaitingModel     = "awaiting_groq_model"
	StateConfirm           = "confirm_save"
	StateAwaitingPrefix    = "awaiting_custom_prefix"
	StateAwaitingWelcome   = "awaiting_welcome_text"
)

// SetupSession is the ephemeral state of one admin's configuration dialog.
// Sessions are keyed by admin id alone, so an admin configuring a second
// group replaces the first session (last write wins).
type SetupSession struct {
	AdminID   int64  `json:"admin_id"`
	GroupID   int64  `json:"group_id"`
	GroupName string `json:"group_name"`
	Language  string `json:"language"`
	State     string `json:"state"`
	APIKey    string `json:"api_key,omitempty"`
	Prompt    string `json:"prompt,omitempty"`
	Model     string `json:"model,omitempty"`
}

// Moderation sensitivity levels, ordered least to most strict.
const (
	ModerationDisabled       = "disabled"
	ModerationLow            = "low"
	ModerationNormal         = "normal"
	ModerationAggressive     = "aggressive"
	ModerationVeryAggressive = "very_aggressive"
)

// ModerationLevels enumerates the selectable levels in menu order.
var ModerationLevels = []string{
	ModerationDisabled,
	ModerationLow,
	ModerationNormal,
	ModerationAggressive,
	ModerationVeryAggressive,
}

// ValidModerationLevel reports whether code names a known level.
func ValidModerationLevel(code string) bool {
	for _, l := range ModerationLevels {
		if l == code {
			return true
		}
	}
	return false
}

// AdminNotifyResult records the outcome of notifying one group admin about
// a moderation violation.
type AdminNotifyResult struct {
	AdminID   int64
	AdminName string
	Notified  bool
	Forwarded bool
	Err       error
}
