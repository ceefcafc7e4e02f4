package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("scheduling: not found")

// AppointmentRepository reads are organization-scoped: a nil orgIDs slice
// means unrestricted, an empty slice matches nothing.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}
