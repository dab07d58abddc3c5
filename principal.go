package session

import "github.com/bruinmarket/go-session/middleware/sessionware"

// Principal re-exports the middleware principal so application code only
// imports the root package.
type Principal = sessionware.Principal

// PrincipalFromAccount builds a Principal from a live account row
func PrincipalFromAccount(account *Account) *Principal {
	if account == nil {
		return nil
	}
	return &Principal{
		ID:    account.ID.String(),
		Email: account.Email,
		Name:  account.Name,
		Role:  account.Role,
	}
}
