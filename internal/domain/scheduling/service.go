package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

var (
	ErrNoOrganization = errors.New("scheduling: organization scope required")
	ErrInvalidStatus  = errors.New("scheduling: invalid appointment status")
)

var validStatuses = map[string]bool{
	"proposed": true, "pending": true, "booked": true, "arrived": true,
	"fulfilled": true, "cancelled": true, "noshow": true,
	"entered-in-error": true, "checked-in": true,
}

type Service struct {
	appointments AppointmentRepository
}

func NewService(appointments AppointmentRepository) *Service {
	return &Service{appointments: appointments}
}

func scopeOf(p *auth.Principal) []uuid.UUID {
	if p.IsSuperAdmin() {
		return nil
	}
	if p.OrganizationIDs == nil {
		return []uuid.UUID{}
	}
	return p.OrganizationIDs
}

func (s *Service) CreateAppointment(ctx context.Context, p *auth.Principal, a *Appointment) error {
	if p.CurrentOrganizationID == nil {
		return ErrNoOrganization
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	if a.EndTime != nil && !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	if a.Status == "" {
		a.Status = "proposed"
	}
	if !validStatuses[a.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, a.Status)
	}
	a.OrganizationID = *p.CurrentOrganizationID
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, p *auth.Principal, fhirID string) (*Appointment, error) {
	return s.appointments.GetByFHIRID(ctx, fhirID, scopeOf(p))
}

func (s *Service) UpdateAppointment(ctx context.Context, p *auth.Principal, a *Appointment) error {
	if a.Status != "" && !validStatuses[a.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, a.Status)
	}
	if a.EndTime != nil && !a.EndTime.After(a.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	return s.appointments.Update(ctx, a)
}

// CancelAppointment moves the appointment to cancelled, recording the reason.
// Terminal appointments stay as they are.
func (s *Service) CancelAppointment(ctx context.Context, p *auth.Principal, fhirID, reason string) (*Appointment, error) {
	a, err := s.appointments.GetByFHIRID(ctx, fhirID, scopeOf(p))
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case "fulfilled", "entered-in-error", "cancelled":
		return nil, fmt.Errorf("appointment in status %s cannot be cancelled", a.Status)
	}
	a.Status = "cancelled"
	if reason != "" {
		a.CancellationReason = &reason
	}
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, p *auth.Principal, fhirID string) error {
	a, err := s.appointments.GetByFHIRID(ctx, fhirID, scopeOf(p))
	if err != nil {
		return err
	}
	return s.appointments.Delete(ctx, a.ID)
}

func (s *Service) SearchAppointments(ctx context.Context, p *auth.Principal, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, scopeOf(p), params, limit, offset)
}
