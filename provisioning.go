package session

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// defaultPhoneRegion is assumed for contact numbers entered without a
// country prefix.
const defaultPhoneRegion = "US"

// ExternalProfile is the verified identity attributes handed over by the
// upstream identity provider after a successful OAuth exchange. This module
// never sees provider tokens, only this already-verified projection.
type ExternalProfile struct {
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	Phone         string `json:"phone_number,omitempty"`
}

// Validate checks the profile carries the attributes provisioning depends on
func (p ExternalProfile) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Subject, validation.Required),
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Name, validation.Required),
	)
}

// Provisioner creates or refreshes account rows from external profiles
type Provisioner struct {
	accounts Accounts
	activity ActivitySink
	logger   Logger
	region   string
}

type ProvisionerOption func(*Provisioner)

// WithProvisionerActivitySink wires an audit sink for provisioning events
func WithProvisionerActivitySink(sink ActivitySink) ProvisionerOption {
	return func(p *Provisioner) {
		p.activity = sink
	}
}

// WithProvisionerLogger sets the logger
func WithProvisionerLogger(logger Logger) ProvisionerOption {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// WithPhoneRegion sets the region assumed for national-format phone numbers
func WithPhoneRegion(region string) ProvisionerOption {
	return func(p *Provisioner) {
		p.region = region
	}
}

func NewProvisioner(accounts Accounts, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		accounts: accounts,
		region:   defaultPhoneRegion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	p.activity = normalizeActivitySink(p.activity)
	if p.logger == nil {
		p.logger = defLogger{}
	}

	return p
}

// CreateOrUpdate provisions the account for a verified external profile,
// keyed by email. First sign-in inserts a fresh row with the default role;
// repeat sign-ins refresh display attributes only. Role and suspension are
// never written here: an admin demoting or suspending an account must not be
// undone by the account holder simply signing in again.
func (p *Provisioner) CreateOrUpdate(ctx context.Context, profile ExternalProfile) (*Account, error) {
	return p.CreateOrUpdateTx(ctx, nil, profile)
}

// CreateOrUpdateTx is CreateOrUpdate inside an existing transaction
func (p *Provisioner) CreateOrUpdateTx(ctx context.Context, tx bun.IDB, profile ExternalProfile) (*Account, error) {
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid external profile")
	}

	email := normalizeEmail(profile.Email)

	existing, err := p.findByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return p.insert(ctx, tx, profile, email)
	}

	return p.refresh(ctx, tx, existing, profile)
}

func (p *Provisioner) findByEmail(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	var account *Account
	var err error

	if tx != nil {
		account, err = p.accounts.GetByEmailTx(ctx, tx, email)
	} else {
		account, err = p.accounts.GetByEmail(ctx, email)
	}

	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return account, nil
}

func (p *Provisioner) insert(ctx context.Context, tx bun.IDB, profile ExternalProfile, email string) (*Account, error) {
	record := &Account{
		ID:          stableAccountID(profile.Subject),
		Subject:     profile.Subject,
		Email:       email,
		Name:        profile.Name,
		AvatarURL:   profile.AvatarURL,
		Phone:       p.normalizePhone(profile.Phone),
		Role:        RoleUser,
		IsVerified:  true,
		IsSuspended: false,
	}

	var created *Account
	var err error
	if tx != nil {
		created, err = p.accounts.CreateTx(ctx, tx, record)
	} else {
		created, err = p.accounts.Create(ctx, record)
	}
	if err != nil {
		// concurrent first sign-ins race to the unique email constraint; the
		// loser surfaces the conflict and the client retries
		return nil, errors.Wrap(err, errors.CategoryConflict, "failed to provision account")
	}

	_ = p.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventAccountProvisioned,
		AccountID:  created.ID.String(),
		Email:      created.Email,
		OccurredAt: time.Now(),
	})

	return created, nil
}

func (p *Provisioner) refresh(ctx context.Context, tx bun.IDB, existing *Account, profile ExternalProfile) (*Account, error) {
	update := &Account{
		ID:        existing.ID,
		Name:      profile.Name,
		AvatarURL: profile.AvatarURL,
		Phone:     p.normalizePhone(profile.Phone),
	}

	if update.Name == "" {
		update.Name = existing.Name
	}

	if tx != nil {
		return p.accounts.RefreshProfileTx(ctx, tx, update)
	}
	return p.accounts.RefreshProfile(ctx, update)
}

// normalizePhone canonicalizes contact numbers to E.164. A number that does
// not parse is kept as entered, listings contact info is display-only.
func (p *Provisioner) normalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, p.region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		p.logger.Debug("provisioner kept unparseable phone number as entered")
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// stableAccountID derives a deterministic UUID from the provider subject so
// a re-provisioned account keeps its identity across environments.
func stableAccountID(subject string) uuid.UUID {
	if strings.TrimSpace(subject) == "" {
		return uuid.New()
	}

	id, err := hashid.NewUUID(subject)
	if err != nil {
		return uuid.New()
	}
	return id
}
