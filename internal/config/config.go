package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Groq       GroqConfig       `mapstructure:"groq"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Session    SessionConfig    `mapstructure:"session"`
	Crypto     CryptoConfig     `mapstructure:"crypto"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	History    HistoryConfig    `mapstructure:"history"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type BotConfig struct {
	Token            string `mapstructure:"token"`
	UpdateTimeout    int    `mapstructure:"update_timeout"`
	StartImageFileID string `mapstructure:"start_image_file_id"`
	PrivacyPolicyURL string `mapstructure:"privacy_policy_url"`
}

type GroqConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// SessionConfig selects the backend for ephemeral setup sessions and the
// pending-reasoning cache.
type SessionConfig struct {
	Type   string       `mapstructure:"type"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Memory MemoryConfig `mapstructure:"memory"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MemoryConfig struct {
	ThoughtsTTL     time.Duration `mapstructure:"thoughts_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type CryptoConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Languages       []string `mapstructure:"languages"`
	Directory       string   `mapstructure:"directory"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.SetEnvPrefix("") // No prefix
	viper.BindEnv("bot.token", "BOT_TOKEN")
	viper.BindEnv("crypto.encryption_key", "ENCRYPTION_KEY")
	viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	viper.BindEnv("groq.max_tokens", "GROQ_MAX_TOKENS")
	viper.BindEnv("storage.database_path", "DATABASE_PATH")
	viper.BindEnv("session.redis.addr", "REDIS_ADDR")
	viper.BindEnv("session.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("session.redis.db", "REDIS_DB")
	viper.BindEnv("bot.start_image_file_id", "START_IMAGE_FILE_ID")
	viper.BindEnv("bot.privacy_policy_url", "PRIVACY_POLICY_URL")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Groq.BaseURL == "" {
		cfg.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Groq.MaxTokens == 0 {
		cfg.Groq.MaxTokens = 512
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/wisedebot.db"
	}
	if cfg.Session.Type == "" {
		cfg.Session.Type = "memory"
	}
	if cfg.Session.Memory.ThoughtsTTL == 0 {
		cfg.Session.Memory.ThoughtsTTL = time.Hour
	}
	if cfg.Session.Memory.CleanupInterval == 0 {
		cfg.Session.Memory.CleanupInterval = 10 * time.Minute
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = 10
	}
	if cfg.Bot.UpdateTimeout == 0 {
		cfg.Bot.UpdateTimeout = 30
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
	if len(cfg.I18n.Languages) == 0 {
		cfg.I18n.Languages = []string{"en", "ru", "id"}
	}
	if cfg.I18n.Directory == "" {
		cfg.I18n.Directory = "configs/i18n"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Bot.Token == "" {
		return fmt.Errorf("bot token is required")
	}
	if cfg.Crypto.EncryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if cfg.Session.Type != "memory" && cfg.Session.Type != "redis" {
		return fmt.Errorf("unsupported session store type: %s", cfg.Session.Type)
	}
	if cfg.Session.Type == "redis" && cfg.Session.Redis.Addr == "" {
		return fmt.Errorf("redis session store requires an address")
	}
	return nil
}
