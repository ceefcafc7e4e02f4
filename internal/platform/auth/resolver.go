package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrUnauthenticated covers unknown or inactive identities and store
	// failures during identity/membership lookup.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrForbidden covers a requested organization outside the caller's
	// effective set.
	ErrForbidden = errors.New("auth: forbidden")
)

// AccessStore is the persistence surface the resolver needs. The production
// implementation is Postgres-backed; tests substitute in-memory stores.
type AccessStore interface {
	// GetIdentity fetches the identity row, whether active or not.
	GetIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error)
	// ListActiveAccess returns the caller's access rows with status=active,
	// joined with their organization; rows whose organization is inactive
	// are excluded.
	ListActiveAccess(ctx context.Context, userID uuid.UUID) ([]OrganizationAccess, error)
	// ListActiveOrganizations enumerates organizations with active=true.
	ListActiveOrganizations(ctx context.Context) ([]OrganizationRef, error)
	// UpsertAccess inserts an active access row if absent. A concurrent
	// duplicate insert is not an error; created reports whether this call
	// inserted the row.
	UpsertAccess(ctx context.Context, userID, orgID uuid.UUID, role string) (created bool, err error)
	// SetPrimaryOrganization records the identity's default organization.
	SetPrimaryOrganization(ctx context.Context, userID, orgID uuid.UUID) error
}

// Resolver computes a Principal for the lifetime of one request.
type Resolver struct {
	store  AccessStore
	logger zerolog.Logger
}

func NewResolver(store AccessStore, logger zerolog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve transforms a verified identity into a complete Principal, or fails
// the request. requestedOrg is the raw X-Organization-ID header value, empty
// when absent.
//
// Resolution order: identity lookup, membership load, super-admin self-heal,
// current-organization selection, consistency check. Identity and membership
// failures are terminal; self-heal failures are logged and swallowed so a
// super-admin whose access already exists (or is being created concurrently)
// is never locked out.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, requestedOrg string) (*Principal, error) {
	ident, err := r.store.GetIdentity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: identity lookup: %v", ErrUnauthenticated, err)
	}
	if !ident.Active {
		return nil, fmt.Errorf("%w: identity is inactive", ErrUnauthenticated)
	}

	access, err := r.store.ListActiveAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: membership load: %v", ErrUnauthenticated, err)
	}

	if len(access) == 0 && ident.Role == RoleSuperAdmin {
		access = r.selfHeal(ctx, ident)
	}

	p := &Principal{
		ID:                    ident.ID,
		Email:                 ident.Email,
		Role:                  ident.Role,
		PrimaryOrganizationID: ident.PrimaryOrganizationID,
		Access:                access,
	}
	for _, a := range access {
		p.OrganizationIDs = append(p.OrganizationIDs, a.OrganizationID)
	}

	current, err := selectCurrentOrganization(p, requestedOrg)
	if err != nil {
		return nil, err
	}
	p.CurrentOrganizationID = current

	return p, nil
}

// selfHeal provisions admin access to every active organization for a
// super-admin with an empty membership set. Two concurrent first-logins may
// race here; the upsert tolerates the duplicate, and any other failure is
// logged and swallowed rather than blocking the login. The enumeration result
// is reused directly to build the access list, avoiding a second round-trip.
func (r *Resolver) selfHeal(ctx context.Context, ident *Identity) []OrganizationAccess {
	orgs, err := r.store.ListActiveOrganizations(ctx)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", ident.ID.String()).
			Msg("self-heal: organization enumeration failed")
		return nil
	}

	var access []OrganizationAccess
	for _, org := range orgs {
		created, err := r.store.UpsertAccess(ctx, ident.ID, org.ID, AccessRoleAdmin)
		if err != nil {
			r.logger.Error().Err(err).
				Str("user_id", ident.ID.String()).
				Str("organization_id", org.ID.String()).
				Msg("self-heal: access upsert failed")
			continue
		}
		if created {
			r.logger.Info().
				Str("user_id", ident.ID.String()).
				Str("organization_id", org.ID.String()).
				Msg("self-heal: provisioned super-admin access")
		}
		access = append(access, OrganizationAccess{
			OrganizationID:   org.ID,
			OrganizationName: org.Name,
			Role:             AccessRoleAdmin,
			Status:           AccessStatusActive,
		})
	}

	if ident.PrimaryOrganizationID == nil && len(access) > 0 {
		first := access[0].OrganizationID
		if err := r.store.SetPrimaryOrganization(ctx, ident.ID, first); err != nil {
			r.logger.Error().Err(err).
				Str("user_id", ident.ID.String()).
				Msg("self-heal: set primary organization failed")
		} else {
			ident.PrimaryOrganizationID = &first
		}
	}

	return access
}

// selectCurrentOrganization picks the request's organization scope. Candidate
// order: request header, then the identity's primary organization, then the
// first effective organization. A selected candidate outside the effective
// set is rejected, never silently replaced.
func selectCurrentOrganization(p *Principal, requestedOrg string) (*uuid.UUID, error) {
	if requestedOrg != "" {
		orgID, err := uuid.Parse(requestedOrg)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed organization id %q", ErrForbidden, requestedOrg)
		}
		if !p.IsMemberOf(orgID) {
			return nil, fmt.Errorf("%w: no access to organization %s", ErrForbidden, orgID)
		}
		return &orgID, nil
	}

	if p.PrimaryOrganizationID != nil {
		if !p.IsMemberOf(*p.PrimaryOrganizationID) {
			return nil, fmt.Errorf("%w: no access to primary organization %s", ErrForbidden, *p.PrimaryOrganizationID)
		}
		return p.PrimaryOrganizationID, nil
	}

	if len(p.OrganizationIDs) > 0 {
		return &p.OrganizationIDs[0], nil
	}
	return nil, nil
}
