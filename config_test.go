package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/bruinmarket/go-session"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads defaults around the signing key", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "super-secret-key")

		cfg, err := session.LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, "super-secret-key", cfg.GetSigningKey())
		assert.Equal(t, 24*time.Hour, cfg.GetTokenExpiration())
		assert.Equal(t, "session_token", cfg.GetCookieName())
		assert.True(t, cfg.GetCookieSecure())
		assert.Equal(t, "bruinmarket", cfg.GetIssuer())
		assert.Equal(t, []string{"ucla.edu"}, cfg.GetAllowedEmailDomains())
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "super-secret-key")
		t.Setenv("SESSION_TOKEN_TTL", "1h")
		t.Setenv("SESSION_COOKIE_NAME", "bm_session")
		t.Setenv("SESSION_COOKIE_SECURE", "false")
		t.Setenv("SESSION_ALLOWED_EMAIL_DOMAINS", "ucla.edu,berkeley.edu")
		t.Setenv("SESSION_SUPPORT_CONTACT", "support@bruinmarket.com")

		cfg, err := session.LoadConfig()

		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.GetTokenExpiration())
		assert.Equal(t, "bm_session", cfg.GetCookieName())
		assert.False(t, cfg.GetCookieSecure())
		assert.Equal(t, []string{"ucla.edu", "berkeley.edu"}, cfg.GetAllowedEmailDomains())
		assert.Equal(t, "support@bruinmarket.com", cfg.GetSupportContact())
	})

	t.Run("refuses to load without a signing key", func(t *testing.T) {
		t.Setenv("SESSION_SIGNING_KEY", "")

		cfg, err := session.LoadConfig()

		assert.Nil(t, cfg)
		assert.Error(t, err)
	})

	t.Run("zero TTL falls back to the default", func(t *testing.T) {
		cfg := &session.EnvConfig{SigningKey: "k", CookieName: "c"}

		assert.Equal(t, session.DefaultTokenTTL, cfg.GetTokenExpiration())
	})
}
