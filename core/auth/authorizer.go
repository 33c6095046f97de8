package auth

import (
	"melodex/apperr"
	"melodex/model"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// Authorizer is the single place role and ownership rules are checked.
// Every mutating handler goes through it instead of re-implementing
// the checks inline.
type Authorizer struct{}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// RequireRole fails with a Forbidden error unless the principal holds
// one of the given roles.
func (a *Authorizer) RequireRole(p *Principal, roles ...string) error {
	if p == nil {
		return apperr.New(apperr.KindAuth, "authentication required")
	}
	for _, role := range roles {
		if p.Role == role {
			return nil
		}
	}
	return apperr.Forbidden("insufficient role")
}

// RequireOwnership fails with a Forbidden error unless the principal
// owns the resource. Admins pass regardless of ownership.
func (a *Authorizer) RequireOwnership(p *Principal, ownerID int64) error {
	if p == nil {
		return apperr.New(apperr.KindAuth, "authentication required")
	}
	if p.UserID == ownerID || p.IsAdmin() {
		return nil
	}
	return apperr.Forbidden("not the resource owner")
}

// RequireNotSelf guards admin operations that must not target the
// acting admin's own account, such as account deletion.
func (a *Authorizer) RequireNotSelf(p *Principal, targetID int64) error {
	if p == nil {
		return apperr.New(apperr.KindAuth, "authentication required")
	}
	if p.UserID == targetID {
		return apperr.Forbidden("cannot target your own account")
	}
	return nil
}
