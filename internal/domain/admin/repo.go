package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("admin: not found")
	ErrDuplicateGrant = errors.New("admin: access already granted")
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, ids []uuid.UUID, limit, offset int) ([]*Organization, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*Organization, int, error)
}

type AccessRepository interface {
	// Grant inserts a membership row; created is false when the pair
	// already exists.
	Grant(ctx context.Context, g *AccessGrant) (created bool, err error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*AccessGrant, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*AccessGrant, error)
	Revoke(ctx context.Context, userID, organizationID uuid.UUID) error
	UpdateRole(ctx context.Context, userID, organizationID uuid.UUID, role string) error
}
