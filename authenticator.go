package session

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Auther implements the complete post-OAuth sign-in path: domain allow-list,
// account provisioning, suspension check, token mint.
type Auther struct {
	repo           RepositoryManager
	provisioner    *Provisioner
	tokenService   TokenService
	resolver       SessionResolver
	allowedDomains []string
	logger         Logger
	activitySink   ActivitySink
}

// NewAuthenticator returns a new Authenticator. Fails when the configured
// signing key is empty.
func NewAuthenticator(repo RepositoryManager, opts Config) (*Auther, error) {
	tokenService, err := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)
	if err != nil {
		return nil, err
	}

	return &Auther{
		repo:           repo,
		provisioner:    NewProvisioner(repo.Accounts()),
		tokenService:   tokenService,
		resolver:       NewResolver(tokenService),
		allowedDomains: opts.GetAllowedEmailDomains(),
		logger:         defLogger{},
		activitySink:   noopActivitySink{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithProvisioner overrides the default provisioner.
func (s *Auther) WithProvisioner(p *Provisioner) *Auther {
	if p != nil {
		s.provisioner = p
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Resolver returns the SessionResolver backed by this Authenticator's codec
func (s *Auther) Resolver() SessionResolver {
	return s.resolver
}

// SignIn completes a sign-in for a verified external profile and returns a
// minted session token. Rejections happen before any row is written: a
// profile outside the allowed domains is refused outright, not provisioned
// and flagged.
func (s *Auther) SignIn(ctx context.Context, profile ExternalProfile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "invalid external profile")
	}

	if !profile.EmailVerified {
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, ActorRef{}, "", map[string]any{
			"email": profile.Email,
			"error": ErrEmailNotVerified.Error(),
		})
		return "", ErrEmailNotVerified
	}

	if !emailDomainAllowed(profile.Email, s.allowedDomains) {
		s.logger.Warn("SignIn rejected email outside allowed domains")
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, ActorRef{}, "", map[string]any{
			"email": profile.Email,
			"error": ErrEmailDomainNotAllowed.Error(),
		})
		return "", ErrEmailDomainNotAllowed
	}

	var account *Account
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		account, err = s.provisioner.CreateOrUpdateTx(ctx, tx, profile)
		return err
	})
	if err != nil {
		s.logger.Error("SignIn provisioning error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, ActorRef{}, "", map[string]any{
			"email": profile.Email,
			"error": err.Error(),
		})
		return "", err
	}

	if account.IsSuspended {
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email": account.Email,
			"error": ErrAccountSuspended.Error(),
		})
		return "", ErrAccountSuspended
	}

	token, err := s.tokenService.Mint(NewIdentityFromAccount(account))
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, s.actorFromAccount(account), account.ID.String(), map[string]any{
			"email": account.Email,
			"error": err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventSignInSuccess, s.actorFromAccount(account), account.ID.String(), map[string]any{
		"email": account.Email,
	})

	return token, nil
}

// SessionFromToken resolves a raw cookie value into verified claims
func (s *Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.resolver.Resolve(raw)
	if err != nil {
		s.logger.Debug("SessionFromToken validation failed", "error", err)
		return nil, err
	}
	return claims, nil
}

// IdentityFromClaims loads the live account behind verified claims. The
// fresh row is authoritative: a vanished account is unauthenticated, a
// suspended one forbidden, whatever the claims say.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error) {
	account, err := s.repo.Accounts().GetByIdentifier(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("IdentityFromClaims found no account for %s", claims.UserID())
			s.emitAuthEvent(ctx, ActivityEventOrphanedSession, ActorRef{}, claims.UserID(), map[string]any{
				"email": claims.Email(),
			})
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if account.IsSuspended {
		return nil, ErrAccountSuspended
	}

	return NewIdentityFromAccount(account), nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromAccount(account *Account) ActorRef {
	if account == nil {
		return ActorRef{}
	}

	return ActorRef{
		ID:    account.ID.String(),
		Email: account.Email,
		Role:  account.Role,
	}
}

// emailDomainAllowed matches the part after "@" against the allow-list,
// case-insensitively. Subdomains of an allowed domain are allowed too, so
// "g.ucla.edu" passes a "ucla.edu" list. An empty list allows everything.
func emailDomainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}

	domain := strings.ToLower(email[at+1:])
	for _, d := range allowed {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}

	return false
}
