// Package auth resolves the per-request authorization context. Every
// authenticated request passes through the Resolver, which turns a verified
// token identity into a Principal: the caller's effective organization set,
// the current organization for this request, and the raw access rows. The
// Principal is rebuilt from the store on every request and never cached.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is a global identity role.
type Role string

const (
	RoleSuperAdmin   Role = "super_admin"
	RoleOrgAdmin     Role = "org_admin"
	RolePractitioner Role = "practitioner"
	RoleStaff        Role = "staff"
	RoleReadonly     Role = "readonly"
)

// ValidRole reports whether r is one of the known identity roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleOrgAdmin, RolePractitioner, RoleStaff, RoleReadonly:
		return true
	}
	return false
}

// Membership roles within a single organization access row.
const (
	AccessRoleAdmin  = "admin"
	AccessRoleMember = "member"
)

// Membership statuses. Only active rows count toward authorization.
const (
	AccessStatusActive    = "active"
	AccessStatusInactive  = "inactive"
	AccessStatusSuspended = "suspended"
)

// Identity is the stored account the resolver authorizes against.
type Identity struct {
	ID                    uuid.UUID
	Email                 string
	Role                  Role
	Active                bool
	PrimaryOrganizationID *uuid.UUID
}

// OrganizationAccess is one active membership row joined with its organization.
type OrganizationAccess struct {
	OrganizationID   uuid.UUID
	OrganizationName string
	Role             string
	Status           string
	Permissions      []string
}

// OrganizationRef identifies an active organization during self-heal
// enumeration.
type OrganizationRef struct {
	ID   uuid.UUID
	Name string
}

// Principal is the fully-resolved authorization context for one request.
// Downstream handlers read it but never re-derive it.
type Principal struct {
	ID                    uuid.UUID
	Email                 string
	Role                  Role
	OrganizationIDs       []uuid.UUID
	PrimaryOrganizationID *uuid.UUID
	CurrentOrganizationID *uuid.UUID
	Access                []OrganizationAccess
}

// IsSuperAdmin reports whether the principal holds the platform-wide role.
func (p *Principal) IsSuperAdmin() bool {
	return p.Role == RoleSuperAdmin
}

// IsMemberOf reports whether orgID is in the principal's effective set.
func (p *Principal) IsMemberOf(orgID uuid.UUID) bool {
	for _, id := range p.OrganizationIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// AccessFor returns the access row for orgID, or nil.
func (p *Principal) AccessFor(orgID uuid.UUID) *OrganizationAccess {
	for i := range p.Access {
		if p.Access[i].OrganizationID == orgID {
			return &p.Access[i]
		}
	}
	return nil
}

// IsOrgAdmin reports whether the principal administers orgID, either through
// the membership row's role or the global super_admin role.
func (p *Principal) IsOrgAdmin(orgID uuid.UUID) bool {
	if p.IsSuperAdmin() {
		return true
	}
	if a := p.AccessFor(orgID); a != nil {
		return a.Role == AccessRoleAdmin
	}
	return false
}

type contextKey string

const principalKey contextKey = "auth_principal"

// WithPrincipal returns a context carrying the resolved principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal attached by the middleware,
// or nil for unauthenticated (public) requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
