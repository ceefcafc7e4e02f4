package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

type Service struct {
	orgs   OrganizationRepository
	access AccessRepository
}

func NewService(orgs OrganizationRepository, access AccessRepository) *Service {
	return &Service{orgs: orgs, access: access}
}

// -- Organization --

func (s *Service) CreateOrganization(ctx context.Context, o *Organization) error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.TypeCode == "" {
		o.TypeCode = "prov"
	}
	o.Active = true
	return s.orgs.Create(ctx, o)
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

func (s *Service) GetOrganizationByFHIRID(ctx context.Context, fhirID string) (*Organization, error) {
	return s.orgs.GetByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateOrganization(ctx context.Context, o *Organization) error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.orgs.Update(ctx, o)
}

func (s *Service) DeactivateOrganization(ctx context.Context, id uuid.UUID) error {
	return s.orgs.Deactivate(ctx, id)
}

// ListOrganizations returns every organization for super-admins and the
// principal's effective scope for everyone else.
func (s *Service) ListOrganizations(ctx context.Context, p *auth.Principal, limit, offset int) ([]*Organization, int, error) {
	if p.IsSuperAdmin() {
		return s.orgs.ListAll(ctx, limit, offset)
	}
	if len(p.OrganizationIDs) == 0 {
		return nil, 0, nil
	}
	return s.orgs.List(ctx, p.OrganizationIDs, limit, offset)
}

// -- Access --

// GrantAccess provisions a membership via the admin API. A pre-existing
// grant for the same user and organization is a conflict.
func (s *Service) GrantAccess(ctx context.Context, g *AccessGrant) error {
	if g.UserID == uuid.Nil || g.OrganizationID == uuid.Nil {
		return fmt.Errorf("user_id and organization_id are required")
	}
	if g.Role == "" {
		g.Role = auth.AccessRoleMember
	}
	if g.Role != auth.AccessRoleAdmin && g.Role != auth.AccessRoleMember {
		return fmt.Errorf("role must be %q or %q", auth.AccessRoleAdmin, auth.AccessRoleMember)
	}
	if _, err := s.orgs.GetByID(ctx, g.OrganizationID); err != nil {
		return err
	}
	created, err := s.access.Grant(ctx, g)
	if err != nil {
		return err
	}
	if !created {
		return ErrDuplicateGrant
	}
	return nil
}

// Grant provisions a membership idempotently; a duplicate is not an error.
// It satisfies the account registration flow's granter dependency.
func (s *Service) Grant(ctx context.Context, userID, organizationID uuid.UUID, role string) (bool, error) {
	return s.access.Grant(ctx, &AccessGrant{
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
	})
}

func (s *Service) ListAccess(ctx context.Context, organizationID uuid.UUID) ([]*AccessGrant, error) {
	return s.access.ListByOrganization(ctx, organizationID)
}

func (s *Service) ListUserAccess(ctx context.Context, userID uuid.UUID) ([]*AccessGrant, error) {
	return s.access.ListByUser(ctx, userID)
}

func (s *Service) RevokeAccess(ctx context.Context, userID, organizationID uuid.UUID) error {
	return s.access.Revoke(ctx, userID, organizationID)
}

func (s *Service) UpdateAccessRole(ctx context.Context, userID, organizationID uuid.UUID, role string) error {
	if role != auth.AccessRoleAdmin && role != auth.AccessRoleMember {
		return fmt.Errorf("role must be %q or %q", auth.AccessRoleAdmin, auth.AccessRoleMember)
	}
	return s.access.UpdateRole(ctx, userID, organizationID, role)
}
