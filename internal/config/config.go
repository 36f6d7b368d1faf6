// internal/config/config.go
package config

import (
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	ListenAddr           string        `mapstructure:"LISTEN_ADDR"`
	DBURL                string        `mapstructure:"DB_URL"`
	AppBaseURL           string        `mapstructure:"APP_BASE_URL"`
	TelegramBotToken     string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	BotUsername          string        `mapstructure:"BOT_USERNAME"`
	GeminiAPIKey         string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel          string        `mapstructure:"GEMINI_MODEL"`
	SummarizeTimeout     time.Duration `mapstructure:"SUMMARIZE_TIMEOUT"`
	DeliveryTimeout      time.Duration `mapstructure:"DELIVERY_TIMEOUT"`
	PromptCommitCeiling  int           `mapstructure:"PROMPT_COMMIT_CEILING"`
	PresentationTimezone string        `mapstructure:"PRESENTATION_TIMEZONE"`
	TokenCipherKey       string        `mapstructure:"TOKEN_CIPHER_KEY"`
	RetentionDays        int           `mapstructure:"RETENTION_DAYS"`
	RetentionInterval    time.Duration `mapstructure:"RETENTION_INTERVAL"`
	TokenCipherKeyBytes  []byte        `mapstructure:"-"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LISTEN_ADDR", ":8080")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("SUMMARIZE_TIMEOUT", "5s")
	viper.SetDefault("DELIVERY_TIMEOUT", "10s")
	viper.SetDefault("PROMPT_COMMIT_CEILING", "20")
	viper.SetDefault("PRESENTATION_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("RETENTION_DAYS", "90")
	viper.SetDefault("RETENTION_INTERVAL", "12h")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables. Keys without defaults must be bound
	// explicitly or Unmarshal never sees them.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{
		"DB_URL", "APP_BASE_URL", "TELEGRAM_BOT_TOKEN", "BOT_USERNAME",
		"GEMINI_API_KEY", "TOKEN_CIPHER_KEY",
	} {
		_ = viper.BindEnv(key)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.TelegramBotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is a required configuration field")
	}
	if cfg.AppBaseURL == "" {
		return nil, errors.New("APP_BASE_URL is a required configuration field")
	}
	if cfg.PromptCommitCeiling <= 0 {
		return nil, errors.New("PROMPT_COMMIT_CEILING must be a positive integer")
	}

	// The cipher key is optional: without it the GitHub token flow is
	// disabled and line counts stay payload-derived.
	if cfg.TokenCipherKey != "" {
		key, err := hex.DecodeString(cfg.TokenCipherKey)
		if err != nil || len(key) != 32 {
			return nil, errors.New("TOKEN_CIPHER_KEY must be 32 bytes hex-encoded")
		}
		cfg.TokenCipherKeyBytes = key
	}

	return &cfg, nil
}
