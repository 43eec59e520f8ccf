package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvironmentSettings_Production(t *testing.T) {
	cfg := EnvironmentSettings("production")

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.Features.AuditLogging)
	assert.True(t, cfg.Features.RBAC)
	assert.True(t, cfg.Features.RateLimiting)
	assert.True(t, cfg.Features.DDoSProtection)
	assert.True(t, cfg.Features.SecurityHeaders)
	assert.True(t, cfg.Features.CORS)
	assert.True(t, cfg.Features.CSRF)
	assert.Equal(t, 3, cfg.Settings.MaxLoginAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Settings.LockoutDuration)
	assert.Equal(t, 2*time.Hour, cfg.Settings.SessionTimeout)
	assert.Equal(t, 12, cfg.Settings.PasswordMinLength)
	assert.True(t, cfg.Settings.RequireStrongPasswords)
}

func TestEnvironmentSettings_Test(t *testing.T) {
	cfg := EnvironmentSettings("test")

	assert.Equal(t, Features{}, cfg.Features, "all features off")
	assert.Equal(t, 10, cfg.Settings.MaxLoginAttempts)
	assert.Equal(t, time.Duration(0), cfg.Settings.LockoutDuration)
	assert.Equal(t, 1, cfg.Settings.PasswordMinLength)
}

func TestEnvironmentSettings_DevelopmentIsDefault(t *testing.T) {
	dev := EnvironmentSettings("development")
	unknown := EnvironmentSettings("staging-nonsense")

	assert.Equal(t, dev, unknown)
	assert.True(t, dev.Features.AuditLogging)
	assert.True(t, dev.Features.RBAC)
	assert.True(t, dev.Features.SecurityHeaders)
	assert.True(t, dev.Features.CORS)
	assert.False(t, dev.Features.RateLimiting)
	assert.False(t, dev.Features.DDoSProtection)
	assert.False(t, dev.Features.CSRF)
	assert.Equal(t, 6, dev.Settings.PasswordMinLength)
	assert.Equal(t, DefaultConfig(), dev)
}

func TestMergeConfig_OverridePrecedenceIsKeyByKey(t *testing.T) {
	// A partial override replaces only the keys it names; everything
	// else keeps the environment profile value.
	cfg := MergeConfig("production", Overrides{
		Features: FeatureOverrides{RateLimiting: Bool(false)},
		Settings: SettingOverrides{MaxLoginAttempts: Int(7)},
	})

	assert.False(t, cfg.Features.RateLimiting, "overridden key")
	assert.True(t, cfg.Features.AuditLogging, "untouched key keeps profile value")
	assert.True(t, cfg.Features.CSRF, "untouched key keeps profile value")
	assert.Equal(t, 7, cfg.Settings.MaxLoginAttempts, "overridden key")
	assert.Equal(t, 12, cfg.Settings.PasswordMinLength, "untouched key keeps profile value")
}

func TestMergeConfig_ExplicitFalseDiffersFromUnset(t *testing.T) {
	unset := MergeConfig("production", Overrides{})
	explicit := MergeConfig("production", Overrides{
		Features: FeatureOverrides{AuditLogging: Bool(false)},
	})

	assert.True(t, unset.Features.AuditLogging)
	assert.False(t, explicit.Features.AuditLogging)
}

func TestMergeConfig_AllSettingOverrides(t *testing.T) {
	cfg := MergeConfig("test", Overrides{
		Settings: SettingOverrides{
			MaxLoginAttempts:       Int(2),
			LockoutDuration:        Duration(time.Minute),
			SessionTimeout:         Duration(time.Hour),
			PasswordMinLength:      Int(20),
			RequireStrongPasswords: Bool(true),
		},
	})

	assert.Equal(t, Settings{
		MaxLoginAttempts:       2,
		LockoutDuration:        time.Minute,
		SessionTimeout:         time.Hour,
		PasswordMinLength:      20,
		RequireStrongPasswords: true,
	}, cfg.Settings)
}
