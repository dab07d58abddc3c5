package session

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/kelseyhightower/envconfig"
)

// EnvConfig is the environment-backed Config implementation. All variables
// share the SESSION_ prefix, e.g. SESSION_SIGNING_KEY.
type EnvConfig struct {
	SigningKey          string        `envconfig:"SIGNING_KEY"`
	TokenTTL            time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	CookieName          string        `envconfig:"COOKIE_NAME" default:"session_token"`
	CookieDomain        string        `envconfig:"COOKIE_DOMAIN"`
	CookieSecure        bool          `envconfig:"COOKIE_SECURE" default:"true"`
	Issuer              string        `envconfig:"ISSUER" default:"bruinmarket"`
	Audience            []string      `envconfig:"AUDIENCE"`
	AllowedEmailDomains []string      `envconfig:"ALLOWED_EMAIL_DOMAINS" default:"ucla.edu"`
	SupportContact      string        `envconfig:"SUPPORT_CONTACT"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from the environment. A missing signing key
// fails the load: running without one would mean forgeable sessions.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := envconfig.Process("session", cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load session config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoadConfig is LoadConfig that panics on error, for wiring at startup
func MustLoadConfig() *EnvConfig {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks required configuration values
func (c *EnvConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required),
		validation.Field(&c.CookieName, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid session config")
	}
	return nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *EnvConfig) GetTokenExpiration() time.Duration {
	if c.TokenTTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TokenTTL
}

func (c *EnvConfig) GetCookieName() string {
	return c.CookieName
}

func (c *EnvConfig) GetCookieDomain() string {
	return c.CookieDomain
}

func (c *EnvConfig) GetCookieSecure() bool {
	return c.CookieSecure
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAudience() []string {
	return c.Audience
}

func (c *EnvConfig) GetAllowedEmailDomains() []string {
	return c.AllowedEmailDomains
}

func (c *EnvConfig) GetSupportContact() string {
	return c.SupportContact
}
