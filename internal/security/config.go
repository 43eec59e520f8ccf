package security

import (
	"time"

	"github.com/tripforge/tripforge/internal/config"
)

// Features toggles the security subsystems.
type Features struct {
	AuditLogging    bool `json:"auditLogging"`
	RBAC            bool `json:"rbac"`
	RateLimiting    bool `json:"rateLimiting"`
	DDoSProtection  bool `json:"ddosProtection"`
	SecurityHeaders bool `json:"securityHeaders"`
	CORS            bool `json:"cors"`
	CSRF            bool `json:"csrf"`
}

// Settings holds the numeric security policy values.
type Settings struct {
	MaxLoginAttempts       int           `json:"maxLoginAttempts"`
	LockoutDuration        time.Duration `json:"lockoutDuration"`
	SessionTimeout         time.Duration `json:"sessionTimeout"`
	PasswordMinLength      int           `json:"passwordMinLength"`
	RequireStrongPasswords bool          `json:"requireStrongPasswords"`
}

// Config is the merged security configuration held by the Service.
type Config struct {
	Environment string   `json:"environment"`
	Features    Features `json:"features"`
	Settings    Settings `json:"settings"`
}

// Overrides carries caller-supplied partial configuration. Pointer fields
// distinguish "not set" from an explicit false/zero, so a partial override
// replaces only the keys it names.
type Overrides struct {
	Features FeatureOverrides
	Settings SettingOverrides
}

type FeatureOverrides struct {
	AuditLogging    *bool
	RBAC            *bool
	RateLimiting    *bool
	DDoSProtection  *bool
	SecurityHeaders *bool
	CORS            *bool
	CSRF            *bool
}

type SettingOverrides struct {
	MaxLoginAttempts       *int
	LockoutDuration        *time.Duration
	SessionTimeout         *time.Duration
	PasswordMinLength      *int
	RequireStrongPasswords *bool
}

// DefaultConfig returns the development profile, the default when no
// environment is configured.
func DefaultConfig() Config {
	return EnvironmentSettings(config.EnvDevelopment)
}

// EnvironmentSettings returns the fixed security profile for an
// environment. Unknown environments fall back to development.
func EnvironmentSettings(env string) Config {
	switch env {
	case config.EnvProduction:
		return Config{
			Environment: config.EnvProduction,
			Features: Features{
				AuditLogging:    true,
				RBAC:            true,
				RateLimiting:    true,
				DDoSProtection:  true,
				SecurityHeaders: true,
				CORS:            true,
				CSRF:            true,
			},
			Settings: Settings{
				MaxLoginAttempts:       3,
				LockoutDuration:        30 * time.Minute,
				SessionTimeout:         2 * time.Hour,
				PasswordMinLength:      12,
				RequireStrongPasswords: true,
			},
		}
	case config.EnvTest:
		return Config{
			Environment: config.EnvTest,
			Features:    Features{},
			Settings: Settings{
				MaxLoginAttempts:       10,
				LockoutDuration:        0,
				SessionTimeout:         24 * time.Hour,
				PasswordMinLength:      1,
				RequireStrongPasswords: false,
			},
		}
	default:
		return Config{
			Environment: config.EnvDevelopment,
			Features: Features{
				AuditLogging:    true,
				RBAC:            true,
				RateLimiting:    false,
				DDoSProtection:  false,
				SecurityHeaders: true,
				CORS:            true,
				CSRF:            false,
			},
			Settings: Settings{
				MaxLoginAttempts:       5,
				LockoutDuration:        15 * time.Minute,
				SessionTimeout:         24 * time.Hour,
				PasswordMinLength:      6,
				RequireStrongPasswords: false,
			},
		}
	}
}

// MergeConfig layers the environment profile over the defaults and the
// caller overrides over that, key by key. Override wins over profile,
// profile wins over default.
func MergeConfig(env string, o Overrides) Config {
	cfg := EnvironmentSettings(env)

	f := &cfg.Features
	applyBool(&f.AuditLogging, o.Features.AuditLogging)
	applyBool(&f.RBAC, o.Features.RBAC)
	applyBool(&f.RateLimiting, o.Features.RateLimiting)
	applyBool(&f.DDoSProtection, o.Features.DDoSProtection)
	applyBool(&f.SecurityHeaders, o.Features.SecurityHeaders)
	applyBool(&f.CORS, o.Features.CORS)
	applyBool(&f.CSRF, o.Features.CSRF)

	s := &cfg.Settings
	if o.Settings.MaxLoginAttempts != nil {
		s.MaxLoginAttempts = *o.Settings.MaxLoginAttempts
	}
	if o.Settings.LockoutDuration != nil {
		s.LockoutDuration = *o.Settings.LockoutDuration
	}
	if o.Settings.SessionTimeout != nil {
		s.SessionTimeout = *o.Settings.SessionTimeout
	}
	if o.Settings.PasswordMinLength != nil {
		s.PasswordMinLength = *o.Settings.PasswordMinLength
	}
	if o.Settings.RequireStrongPasswords != nil {
		s.RequireStrongPasswords = *o.Settings.RequireStrongPasswords
	}

	return cfg
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Bool is a convenience for building FeatureOverrides literals.
func Bool(v bool) *bool { return &v }

// Int is a convenience for building SettingOverrides literals.
func Int(v int) *int { return &v }

// Duration is a convenience for building SettingOverrides literals.
func Duration(v time.Duration) *time.Duration { return &v }
