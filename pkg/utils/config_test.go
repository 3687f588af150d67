package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Origin: "http://localhost:3000",
		},
		Secret: SecretConfig{
			Store:     SecretStorePostgres,
			OTPTTL:    2 * time.Minute,
			ResetTTL:  2 * time.Minute,
			OTPLength: 6,
			HashCost:  10,
		},
		Payment: PaymentConfig{
			KeyID:         "rzp_test_abc123",
			KeySecret:     "abcdefghijklmnopqrstuvwxyz",
			WebhookSecret: "whsec",
			Timeout:       30 * time.Second,
			MinUnits:      100,
			MaxUnits:      1500000000,
		},
		Limit: RateLimitConfig{RPS: 1, Burst: 5},
	}
}

func TestLoadConfig_DefaultsWithoutEnvFile(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_fromenv")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.App.Port)
	assert.Equal(t, 2*time.Minute, cfg.Secret.OTPTTL)
	assert.Equal(t, 30*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, int64(100), cfg.Payment.MinUnits)
	assert.Equal(t, int64(1500000000), cfg.Payment.MaxUnits)
	assert.Equal(t, SecretStorePostgres, cfg.Secret.Store)
	assert.Equal(t, "rzp_test_fromenv", cfg.Payment.KeyID)
	assert.Empty(t, cfg.Limit.TrustedProxies)
}

func TestLoadConfig_ReadsEnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9090\nPRODUCTION=true\nOTP_EXPIRATION_TIME=60000\nSECRET_STORE=DynamoDB\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := loadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.App.Production)
	assert.Equal(t, time.Minute, cfg.Secret.OTPTTL)
	assert.Equal(t, SecretStoreDynamo, cfg.Secret.Store)
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	cfg := validConfig()
	cfg.Limit.Burst = 0
	cfg.Payment.KeyID = "key_live"
	cfg.Secret.Store = "redis"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_BURST")
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_ID")
	assert.Contains(t, err.Error(), "SECRET_STORE")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig()
	cfg.App.Production = true
	cfg.Secret.OTPTTL = 15 * time.Minute

	warnings := cfg.Warnings()
	assert.Len(t, warnings, 2)

	cfg = validConfig()
	cfg.Payment.KeyID = "rzp_live_abc"
	assert.Equal(t, []string{"Development environment with Razorpay live keys detected"}, cfg.Warnings())
}

func TestLoadConfig_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Len(t, cfg.Limit.TrustedProxies, 2)
	assert.Equal(t, "10.0.0.0/8", cfg.Limit.TrustedProxies[0].String())
	assert.Equal(t, "192.168.1.7/32", cfg.Limit.TrustedProxies[1].String())
}

func TestLoadConfig_InvalidTrustedProxy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "not-an-ip")

	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRUSTED_PROXIES")
}
