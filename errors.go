package session

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeSessionMissing identifies requests carrying no session cookie
	TextCodeSessionMissing = "SESSION_MISSING"
	// TextCodeSessionExpired identifies structurally valid but expired tokens
	TextCodeSessionExpired = "SESSION_EXPIRED"
	// TextCodeSessionInvalid identifies forged, tampered, or malformed tokens
	TextCodeSessionInvalid = "SESSION_INVALID"
	// TextCodeAccountNotFound identifies tokens referencing a vanished account
	TextCodeAccountNotFound = "ACCOUNT_NOT_FOUND"
	// TextCodeAccountSuspended identifies administratively suspended accounts
	TextCodeAccountSuspended = "ACCOUNT_SUSPENDED"
	// TextCodeAdminRequired identifies role policy rejections
	TextCodeAdminRequired = "ADMIN_REQUIRED"
	// TextCodeNotOwner identifies ownership policy rejections
	TextCodeNotOwner = "NOT_OWNER"
	// TextCodeEmailNotAllowed identifies sign-ins outside the org domain
	TextCodeEmailNotAllowed = "EMAIL_DOMAIN_NOT_ALLOWED"
	// TextCodeEmailNotVerified identifies profiles without provider verification
	TextCodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
)

// ErrNoSessionToken is returned when the request carries no session cookie.
var ErrNoSessionToken = errors.New("no session token found", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMissing).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for well-signed tokens past their expiry. Kept
// distinct from ErrTokenMalformed so clients can show "session expired"
// messaging and re-prompt for login instead of hard-failing.
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers every other verification failure: bad signature,
// wrong algorithm, truncated payload.
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when a valid token references an account
// that no longer exists. Treated as unauthenticated, not as a server error.
var ErrAccountNotFound = errors.New("account no longer exists", errors.CategoryAuth).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrAccountSuspended is returned when the live account row is suspended,
// regardless of token validity.
var ErrAccountSuspended = errors.New("this account has been suspended", errors.CategoryAuthz).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(errors.CodeForbidden)

// ErrAdminRequired is returned by the role policy for non-admin principals.
var ErrAdminRequired = errors.New("administrator access required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired).
	WithCode(errors.CodeForbidden)

// ErrNotOwner is the rejection for ownership policy failures. The ownership
// checks themselves (CanEdit, CanDelete) return bools because the owning
// field varies by resource; host handlers return this error when a check
// reports false.
var ErrNotOwner = errors.New("you do not have access to this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(errors.CodeForbidden)

// ErrEmailDomainNotAllowed rejects sign-ins from outside the allow-listed
// organizational domains. The sign-in is refused outright, not flagged.
var ErrEmailDomainNotAllowed = errors.New("email domain is not allowed", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotAllowed).
	WithCode(errors.CodeForbidden)

// ErrEmailNotVerified rejects sign-ins whose email the identity provider has
// not verified. Without it anyone could claim any address.
var ErrEmailNotVerified = errors.New("email address is not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrMissingSigningKey is a construction-time error: the service must refuse
// to start rather than mint tokens with an empty secret.
var ErrMissingSigningKey = errors.New("session signing key is required", errors.CategoryInternal).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeSessionExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for forged or structurally broken tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeSessionInvalid {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsSuspendedError will check for suspension rejections
func IsSuspendedError(err error) bool {
	if err == nil {
		return false
	}

	var rich *errors.Error
	return errors.As(err, &rich) && rich.TextCode == TextCodeAccountSuspended
}
