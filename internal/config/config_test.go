// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("DB_URL", "postgres://localhost:5432/gitsync")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("APP_BASE_URL", "https://bot.example.com")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 5*time.Second, cfg.SummarizeTimeout)
	assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 20, cfg.PromptCommitCeiling)
	assert.Equal(t, "Asia/Kolkata", cfg.PresentationTimezone)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 12*time.Hour, cfg.RetentionInterval)
	assert.Nil(t, cfg.TokenCipherKeyBytes, "cipher key is optional")
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	cases := []string{"DB_URL", "TELEGRAM_BOT_TOKEN", "APP_BASE_URL"}
	for _, missing := range cases {
		t.Run(missing, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(missing, "")

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestLoadConfig_CipherKey(t *testing.T) {
	t.Run("valid 32-byte hex key", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TOKEN_CIPHER_KEY", "000102030405060708090a0b0c0d0e0f000102030405060708090a0b0c0d0e0f")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Len(t, cfg.TokenCipherKeyBytes, 32)
	})

	t.Run("wrong length is rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TOKEN_CIPHER_KEY", "0011")

		_, err := LoadConfig()
		assert.Error(t, err)
	})

	t.Run("non-hex is rejected", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("TOKEN_CIPHER_KEY", "zz")

		_, err := LoadConfig()
		assert.Error(t, err)
	})
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROMPT_COMMIT_CEILING", "5")
	t.Setenv("PRESENTATION_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.PromptCommitCeiling)
	assert.Equal(t, "UTC", cfg.PresentationTimezone)
}
