package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountRole is the account's global role
type AccountRole = string

const (
	// RoleUser is the default marketplace role (create listings, edit own)
	RoleUser AccountRole = "user"
	// RoleAdmin is the moderation role (may remove any listing)
	RoleAdmin AccountRole = "admin"
)

// Account is the persisted account record, authoritative for role and
// suspension state. ID is stable across sign-ins and is the join key used
// by every resource-ownership check in the marketplace.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Subject       string      `bun:"provider_subject,notnull,unique" json:"provider_subject,omitempty"`
	Email         string      `bun:"email,notnull,unique" json:"email,omitempty"`
	Name          string      `bun:"name,notnull" json:"name,omitempty"`
	AvatarURL     string      `bun:"avatar_url" json:"avatar_url,omitempty"`
	Phone         string      `bun:"phone_number" json:"phone_number,omitempty"`
	Role          AccountRole `bun:"account_role,notnull" json:"account_role,omitempty"`
	IsSuspended   bool        `bun:"is_suspended,notnull,default:false" json:"is_suspended,omitempty"`
	IsVerified    bool        `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	SuspendedAt   *time.Time  `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt     *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureRole normalizes the zero value to the default role.
func (a *Account) EnsureRole() {
	if a.Role == "" {
		a.Role = RoleUser
	}
}

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r AccountRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into an AccountRole
func ParseRole(roleStr string) (AccountRole, bool) {
	role := AccountRole(roleStr)
	return role, IsValidRole(role)
}
