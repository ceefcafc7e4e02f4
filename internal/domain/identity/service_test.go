package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

// -- Mock Patient Repository --

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func inScope(orgIDs []uuid.UUID, orgID uuid.UUID) bool {
	if orgIDs == nil {
		return true
	}
	for _, id := range orgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.OrganizationID == p.OrganizationID && existing.MRN == p.MRN {
			return ErrDuplicateMRN
		}
	}
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByFHIRID(_ context.Context, fhirID string, orgIDs []uuid.UUID) (*Patient, error) {
	for _, p := range m.patients {
		if p.FHIRID == fhirID && inScope(orgIDs, p.OrganizationID) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if !inScope(orgIDs, p.OrganizationID) {
			continue
		}
		if family, ok := params["family"]; ok && !strings.EqualFold(p.LastName, family) {
			continue
		}
		if gender, ok := params["gender"]; ok && (p.Gender == nil || *p.Gender != gender) {
			continue
		}
		if mrn, ok := params["identifier"]; ok && p.MRN != mrn {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

// -- Mock Practitioner Repository --

type mockPractitionerRepo struct {
	practitioners map[uuid.UUID]*Practitioner
}

func newMockPractitionerRepo() *mockPractitionerRepo {
	return &mockPractitionerRepo{practitioners: make(map[uuid.UUID]*Practitioner)}
}

func (m *mockPractitionerRepo) Create(_ context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.practitioners[p.ID] = p
	return nil
}

func (m *mockPractitionerRepo) GetByFHIRID(_ context.Context, fhirID string, orgIDs []uuid.UUID) (*Practitioner, error) {
	for _, p := range m.practitioners {
		if p.FHIRID == fhirID && inScope(orgIDs, p.OrganizationID) {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPractitionerRepo) Update(_ context.Context, p *Practitioner) error {
	if _, ok := m.practitioners[p.ID]; !ok {
		return ErrNotFound
	}
	m.practitioners[p.ID] = p
	return nil
}

func (m *mockPractitionerRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.practitioners[id]; !ok {
		return ErrNotFound
	}
	delete(m.practitioners, id)
	return nil
}

func (m *mockPractitionerRepo) Search(_ context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	var result []*Practitioner
	for _, p := range m.practitioners {
		if !inScope(orgIDs, p.OrganizationID) {
			continue
		}
		if family, ok := params["family"]; ok && !strings.EqualFold(p.LastName, family) {
			continue
		}
		if specialty, ok := params["specialty"]; ok && (p.Specialty == nil || !strings.EqualFold(*p.Specialty, specialty)) {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

// -- Helpers --

func newTestService() (*Service, *mockPatientRepo, *mockPractitionerRepo) {
	patients := newMockPatientRepo()
	practitioners := newMockPractitionerRepo()
	return NewService(patients, practitioners), patients, practitioners
}

func memberPrincipal(orgIDs ...uuid.UUID) *auth.Principal {
	p := &auth.Principal{
		ID:              uuid.New(),
		Email:           "staff@clinic.test",
		Role:            auth.RoleStaff,
		OrganizationIDs: orgIDs,
	}
	if len(orgIDs) > 0 {
		p.CurrentOrganizationID = &orgIDs[0]
	}
	return p
}

func superAdminPrincipal() *auth.Principal {
	return &auth.Principal{
		ID:    uuid.New(),
		Email: "root@carebase.test",
		Role:  auth.RoleSuperAdmin,
	}
}

// -- Patient tests --

func TestCreatePatient_AssignsCurrentOrganization(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	p := memberPrincipal(orgID)

	patient := &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}
	if err := svc.CreatePatient(context.Background(), p, patient); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if patient.OrganizationID != orgID {
		t.Errorf("organization = %s, want %s", patient.OrganizationID, orgID)
	}
	if !patient.Active {
		t.Error("new patient should be active")
	}
	if patient.FHIRID == "" {
		t.Error("fhir_id not assigned")
	}
}

func TestCreatePatient_NoCurrentOrganization(t *testing.T) {
	svc, _, _ := newTestService()
	p := superAdminPrincipal()

	err := svc.CreatePatient(context.Background(), p, &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"})
	if !errors.Is(err, ErrNoOrganization) {
		t.Fatalf("err = %v, want ErrNoOrganization", err)
	}
}

func TestCreatePatient_MissingRequiredFields(t *testing.T) {
	svc, _, _ := newTestService()
	p := memberPrincipal(uuid.New())

	if err := svc.CreatePatient(context.Background(), p, &Patient{LastName: "Lovelace", MRN: "MRN-001"}); err == nil {
		t.Error("expected error for missing first_name")
	}
	if err := svc.CreatePatient(context.Background(), p, &Patient{FirstName: "Ada", LastName: "Lovelace"}); err == nil {
		t.Error("expected error for missing mrn")
	}
}

func TestCreatePatient_DuplicateMRNWithinOrganization(t *testing.T) {
	svc, _, _ := newTestService()
	p := memberPrincipal(uuid.New())

	first := &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}
	if err := svc.CreatePatient(context.Background(), p, first); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	err := svc.CreatePatient(context.Background(), p, &Patient{FirstName: "Grace", LastName: "Hopper", MRN: "MRN-001"})
	if !errors.Is(err, ErrDuplicateMRN) {
		t.Fatalf("err = %v, want ErrDuplicateMRN", err)
	}
}

func TestCreatePatient_SameMRNDifferentOrganizations(t *testing.T) {
	svc, _, _ := newTestService()
	orgA := memberPrincipal(uuid.New())
	orgB := memberPrincipal(uuid.New())

	if err := svc.CreatePatient(context.Background(), orgA, &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}); err != nil {
		t.Fatalf("CreatePatient orgA: %v", err)
	}
	if err := svc.CreatePatient(context.Background(), orgB, &Patient{FirstName: "Grace", LastName: "Hopper", MRN: "MRN-001"}); err != nil {
		t.Fatalf("CreatePatient orgB: %v", err)
	}
}

func TestGetPatient_ScopedToMembership(t *testing.T) {
	svc, _, _ := newTestService()
	orgA := uuid.New()
	orgB := uuid.New()
	owner := memberPrincipal(orgA)

	patient := &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}
	if err := svc.CreatePatient(context.Background(), owner, patient); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	if _, err := svc.GetPatient(context.Background(), memberPrincipal(orgA), patient.FHIRID); err != nil {
		t.Errorf("member of owning org: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), memberPrincipal(orgB), patient.FHIRID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign org read: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetPatient(context.Background(), superAdminPrincipal(), patient.FHIRID); err != nil {
		t.Errorf("super-admin read: %v", err)
	}
}

func TestSearchPatients_ScopeAndFilters(t *testing.T) {
	svc, _, _ := newTestService()
	orgA := uuid.New()
	orgB := uuid.New()

	seed := []struct {
		p   *auth.Principal
		pat *Patient
	}{
		{memberPrincipal(orgA), &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "A-1"}},
		{memberPrincipal(orgA), &Patient{FirstName: "Grace", LastName: "Hopper", MRN: "A-2"}},
		{memberPrincipal(orgB), &Patient{FirstName: "Alan", LastName: "Turing", MRN: "B-1"}},
	}
	for _, s := range seed {
		if err := svc.CreatePatient(context.Background(), s.p, s.pat); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	results, total, err := svc.SearchPatients(context.Background(), memberPrincipal(orgA), nil, 20, 0)
	if err != nil {
		t.Fatalf("SearchPatients: %v", err)
	}
	if total != 2 {
		t.Errorf("orgA total = %d, want 2", total)
	}
	for _, r := range results {
		if r.OrganizationID != orgA {
			t.Errorf("result leaked from organization %s", r.OrganizationID)
		}
	}

	_, total, err = svc.SearchPatients(context.Background(), superAdminPrincipal(), nil, 20, 0)
	if err != nil {
		t.Fatalf("SearchPatients super-admin: %v", err)
	}
	if total != 3 {
		t.Errorf("super-admin total = %d, want 3", total)
	}

	_, total, err = svc.SearchPatients(context.Background(), memberPrincipal(orgA), map[string]string{"family": "Hopper"}, 20, 0)
	if err != nil {
		t.Fatalf("SearchPatients filtered: %v", err)
	}
	if total != 1 {
		t.Errorf("family filter total = %d, want 1", total)
	}
}

func TestSearchPatients_EmptyScopeSeesNothing(t *testing.T) {
	svc, _, _ := newTestService()
	owner := memberPrincipal(uuid.New())
	if err := svc.CreatePatient(context.Background(), owner, &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	noOrgs := &auth.Principal{ID: uuid.New(), Role: auth.RoleStaff}
	_, total, err := svc.SearchPatients(context.Background(), noOrgs, nil, 20, 0)
	if err != nil {
		t.Fatalf("SearchPatients: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestDeletePatient_ScopedToMembership(t *testing.T) {
	svc, _, _ := newTestService()
	orgA := uuid.New()
	owner := memberPrincipal(orgA)

	patient := &Patient{FirstName: "Ada", LastName: "Lovelace", MRN: "MRN-001"}
	if err := svc.CreatePatient(context.Background(), owner, patient); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}

	if err := svc.DeletePatient(context.Background(), memberPrincipal(uuid.New()), patient.FHIRID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: err = %v, want ErrNotFound", err)
	}
	if err := svc.DeletePatient(context.Background(), owner, patient.FHIRID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), owner, patient.FHIRID); !errors.Is(err, ErrNotFound) {
		t.Errorf("read after delete: err = %v, want ErrNotFound", err)
	}
}

// -- Practitioner tests --

func TestCreatePractitioner_AssignsCurrentOrganization(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	p := memberPrincipal(orgID)

	pr := &Practitioner{FirstName: "Jane", LastName: "Doe"}
	if err := svc.CreatePractitioner(context.Background(), p, pr); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}
	if pr.OrganizationID != orgID {
		t.Errorf("organization = %s, want %s", pr.OrganizationID, orgID)
	}
}

func TestSearchPractitioners_SpecialtyFilter(t *testing.T) {
	svc, _, _ := newTestService()
	orgID := uuid.New()
	p := memberPrincipal(orgID)

	cardio := "cardiology"
	derm := "dermatology"
	if err := svc.CreatePractitioner(context.Background(), p, &Practitioner{FirstName: "Jane", LastName: "Doe", Specialty: &cardio}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.CreatePractitioner(context.Background(), p, &Practitioner{FirstName: "John", LastName: "Smith", Specialty: &derm}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	results, total, err := svc.SearchPractitioners(context.Background(), p, map[string]string{"specialty": "cardiology"}, 20, 0)
	if err != nil {
		t.Fatalf("SearchPractitioners: %v", err)
	}
	if total != 1 || len(results) != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
	if results[0].LastName != "Doe" {
		t.Errorf("got %s, want Doe", results[0].LastName)
	}
}

func TestPatientToFHIR(t *testing.T) {
	middle := "Augusta"
	gender := "female"
	birth := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)
	orgID := uuid.New()
	patient := &Patient{
		FHIRID:         "pat-1",
		OrganizationID: orgID,
		Active:         true,
		MRN:            "MRN-001",
		FirstName:      "Ada",
		MiddleName:     &middle,
		LastName:       "Lovelace",
		Gender:         &gender,
		BirthDate:      &birth,
	}

	out := patient.ToFHIR()
	if out["resourceType"] != "Patient" {
		t.Errorf("resourceType = %v", out["resourceType"])
	}
	if out["id"] != "pat-1" {
		t.Errorf("id = %v", out["id"])
	}
	if out["birthDate"] != "1815-12-10" {
		t.Errorf("birthDate = %v", out["birthDate"])
	}
	if out["gender"] != "female" {
		t.Errorf("gender = %v", out["gender"])
	}
}
