package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("identity: not found")
	ErrDuplicateMRN = errors.New("identity: mrn already in use")
)

// Repositories are organization-scoped: reads take the caller's effective
// organization set and only return rows inside it.

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Patient, int, error)
}

type PractitionerRepository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Practitioner, error)
	Update(ctx context.Context, p *Practitioner) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Practitioner, int, error)
}
