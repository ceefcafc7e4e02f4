package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

var (
	ErrNoOrganization = errors.New("identity: organization scope required")
	ErrMRNRequired    = errors.New("identity: mrn is required")
)

type Service struct {
	patients      PatientRepository
	practitioners PractitionerRepository
}

func NewService(patients PatientRepository, practitioners PractitionerRepository) *Service {
	return &Service{patients: patients, practitioners: practitioners}
}

// scopeOf returns the organization filter for reads: nil means unrestricted
// (super-admin), an empty slice matches nothing.
func scopeOf(p *auth.Principal) []uuid.UUID {
	if p.IsSuperAdmin() {
		return nil
	}
	if p.OrganizationIDs == nil {
		return []uuid.UUID{}
	}
	return p.OrganizationIDs
}

// writeOrg returns the organization new records are assigned to.
func writeOrg(p *auth.Principal) (uuid.UUID, error) {
	if p.CurrentOrganizationID == nil {
		return uuid.Nil, ErrNoOrganization
	}
	return *p.CurrentOrganizationID, nil
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *auth.Principal, patient *Patient) error {
	orgID, err := writeOrg(p)
	if err != nil {
		return err
	}
	if patient.FirstName == "" || patient.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if patient.MRN == "" {
		return ErrMRNRequired
	}
	patient.OrganizationID = orgID
	patient.Active = true
	return s.patients.Create(ctx, patient)
}

func (s *Service) GetPatient(ctx context.Context, p *auth.Principal, fhirID string) (*Patient, error) {
	return s.patients.GetByFHIRID(ctx, fhirID, scopeOf(p))
}

func (s *Service) UpdatePatient(ctx context.Context, p *auth.Principal, patient *Patient) error {
	if patient.FirstName == "" || patient.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	if patient.MRN == "" {
		return ErrMRNRequired
	}
	return s.patients.Update(ctx, patient)
}

func (s *Service) DeletePatient(ctx context.Context, p *auth.Principal, fhirID string) error {
	patient, err := s.patients.GetByFHIRID(ctx, fhirID, scopeOf(p))
	if err != nil {
		return err
	}
	return s.patients.Delete(ctx, patient.ID)
}

func (s *Service) SearchPatients(ctx context.Context, p *auth.Principal, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, scopeOf(p), params, limit, offset)
}

// -- Practitioner --

func (s *Service) CreatePractitioner(ctx context.Context, p *auth.Principal, pr *Practitioner) error {
	orgID, err := writeOrg(p)
	if err != nil {
		return err
	}
	if pr.FirstName == "" || pr.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	pr.OrganizationID = orgID
	pr.Active = true
	return s.practitioners.Create(ctx, pr)
}

func (s *Service) GetPractitioner(ctx context.Context, p *auth.Principal, fhirID string) (*Practitioner, error) {
	return s.practitioners.GetByFHIRID(ctx, fhirID, scopeOf(p))
}

func (s *Service) UpdatePractitioner(ctx context.Context, p *auth.Principal, pr *Practitioner) error {
	if pr.FirstName == "" || pr.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}
	return s.practitioners.Update(ctx, pr)
}

func (s *Service) DeletePractitioner(ctx context.Context, p *auth.Principal, fhirID string) error {
	pr, err := s.practitioners.GetByFHIRID(ctx, fhirID, scopeOf(p))
	if err != nil {
		return err
	}
	return s.practitioners.Delete(ctx, pr.ID)
}

func (s *Service) SearchPractitioners(ctx context.Context, p *auth.Principal, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	return s.practitioners.Search(ctx, scopeOf(p), params, limit, offset)
}
