package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

// Store is the persistent layer: group configs, conversation history and
// user language preferences.
type Store struct {
	db              *gorm.DB
	defaultLanguage string
	supported       map[string]bool
	logger          *logrus.Logger
}

// NewStore opens (and migrates) the sqlite database at the configured path.
func NewStore(cfg *config.StorageConfig, i18nCfg *config.I18nConfig, logger *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.GroupConfig{},
		&models.ConversationMessage{},
		&models.UserPreference{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	supported := make(map[string]bool, len(i18nCfg.Languages))
	for _, lang := range i18nCfg.Languages {
		supported[lang] = true
	}

	return &Store{
		db:              db,
		defaultLanguage: i18nCfg.DefaultLanguage,
		supported:       supported,
		logger:          logger,
	}, nil
}

// ConfigUpdate is a partial update: nil fields are left untouched. Setting
// a pointer to the zero value clears the column (e.g. an empty prefix
// removes the custom trigger).
type ConfigUpdate struct {
	EncryptedAPIKey       *string
	SystemPrompt          *string
	Model                 *string
	IsActive              *bool
	LanguageCode          *string
	TriggerCommandEnabled *bool
	TriggerMentionEnabled *bool
	TriggerCustomPrefix   *string
	WelcomeEnabled        *bool
	CustomWelcomeMessage  *string
	WelcomeAIEnabled      *bool
	AIWelcomePrompt       *string
	ModerationLevel       *string
	ModerationAction      *string
}

func (u ConfigUpdate) assignments() map[string]interface{} {
	out := map[string]interface{}{}
	if u.EncryptedAPIKey != nil {
		out["encrypted_groq_api_key"] = *u.EncryptedAPIKey
	}
	if u.SystemPrompt != nil {
		out["system_prompt"] = *u.SystemPrompt
	}
	if u.Model != nil {
		out["groq_model"] = *u.Model
	}
	if u.IsActive != nil {
		out["is_active"] = *u.IsActive
	}
	if u.LanguageCode != nil {
		out["language_code"] = *u.LanguageCode
	}
	if u.TriggerCommandEnabled != nil {
		out["ai_trigger_command_enabled"] = *u.TriggerCommandEnabled
	}
	if u.TriggerMentionEnabled != nil {
		out["ai_trigger_mention_enabled"] = *u.TriggerMentionEnabled
	}
	if u.TriggerCustomPrefix != nil {
		out["ai_trigger_custom_prefix"] = *u.TriggerCustomPrefix
	}
	if u.WelcomeEnabled != nil {
		out["welcome_message_enabled"] = *u.WelcomeEnabled
	}
	if u.CustomWelcomeMessage != nil {
		out["custom_welcome_message"] = *u.CustomWelcomeMessage
	}
	if u.WelcomeAIEnabled != nil {
		out["ai_welcome_enabled"] = *u.WelcomeAIEnabled
	}
	if u.AIWelcomePrompt != nil {
		out["ai_welcome_prompt"] = *u.AIWelcomePrompt
	}
	if u.ModerationLevel != nil {
		out["moderation_level"] = *u.ModerationLevel
	}
	if u.ModerationAction != nil {
		out["moderation_action"] = *u.ModerationAction
	}
	return out
}

func nowUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// GetConfig returns the group's config row, or (nil, nil) when the group
// was never configured.
func (s *Store) GetConfig(ctx context.Context, groupID int64) (*models.GroupConfig, error) {
	var cfg models.GroupConfig
	err := s.db.WithContext(ctx).Where("group_id = ?", groupID).First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load group config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig upserts the provided fields for the group. An update with no
// fields set succeeds without touching the database. Every write stamps
// the acting admin and the UTC update time.
func (s *Store) SaveConfig(ctx context.Context, groupID, adminID int64, upd ConfigUpdate) error {
	assignments := upd.assignments()
	if len(assignments) == 0 {
		return nil
	}
	assignments["configured_by_user_id"] = adminID
	assignments["last_updated_at"] = nowUTC()

	row := map[string]interface{}{"group_id": groupID}
	for column, value := range assignments {
		row[column] = value
	}

	err := s.db.WithContext(ctx).Model(&models.GroupConfig{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to save group config: %w", err)
	}
	return nil
}

// DeleteConfig soft-deletes the assistant setup: credential, prompt and
// welcome settings are cleared and the assistant deactivated, but the row
// and the conversation history survive.
func (s *Store) DeleteConfig(ctx context.Context, groupID, adminID int64) error {
	err := s.db.WithContext(ctx).Model(&models.GroupConfig{}).
		Where("group_id = ?", groupID).
		Updates(map[string]interface{}{
			"encrypted_groq_api_key":  "",
			"system_prompt":           "",
			"is_active":               false,
			"welcome_message_enabled": false,
			"custom_welcome_message":  "",
			"ai_welcome_enabled":      false,
			"ai_welcome_prompt":       "",
			"configured_by_user_id":   adminID,
			"last_updated_at":         nowUTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to reset group config: %w", err)
	}
	return nil
}

// AppendHistory stores one conversation turn.
func (s *Store) AppendHistory(ctx context.Context, groupID int64, role, content string) error {
	msg := models.ConversationMessage{
		GroupID: groupID,
		Role:    role,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// GetHistory returns the group's most recent turns in chronological order.
func (s *Store) GetHistory(ctx context.Context, groupID int64, limit int) ([]models.Message, error) {
	var rows []models.ConversationMessage
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	out := make([]models.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = models.Message{Role: row.Role, Content: row.Content}
	}
	return out, nil
}

// ClearHistory drops every stored turn for the group.
func (s *Store) ClearHistory(ctx context.Context, groupID int64) error {
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Delete(&models.ConversationMessage{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// GetGroupLanguage resolves the group's language, falling back to the
// default for unconfigured groups and unknown codes.
func (s *Store) GetGroupLanguage(ctx context.Context, groupID int64) string {
	cfg, err := s.GetConfig(ctx, groupID)
	if err != nil {
		s.logger.WithError(err).WithField("group_id", groupID).Warn("Failed to resolve group language")
		return s.defaultLanguage
	}
	if cfg == nil || !s.supported[cfg.LanguageCode] {
		return s.defaultLanguage
	}
	return cfg.LanguageCode
}

// SetGroupLanguage stores the group language choice.
func (s *Store) SetGroupLanguage(ctx context.Context, groupID, adminID int64, lang string) error {
	return s.SaveConfig(ctx, groupID, adminID, ConfigUpdate{LanguageCode: &lang})
}

// GetUserLanguage returns the user's private language preference, or ""
// when none is stored or the stored code is no longer supported.
func (s *Store) GetUserLanguage(ctx context.Context, userID int64) string {
	var pref models.UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if err == gorm.ErrRecordNotFound {
		return ""
	}
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load user language")
		return ""
	}
	if !s.supported[pref.LanguageCode] {
		return ""
	}
	return pref.LanguageCode
}

// SetUserLanguage stores the user's private language preference.
func (s *Store) SetUserLanguage(ctx context.Context, userID int64, lang string) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"language_code":   lang,
				"last_updated_at": nowUTC(),
			}),
		}).
		Create(&models.UserPreference{
			UserID:        userID,
			LanguageCode:  lang,
			LastUpdatedAt: nowUTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save user language: %w", err)
	}
	return nil
}
