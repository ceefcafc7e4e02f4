package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/fhir"
)

// Patient maps to the patient table. Every record belongs to exactly one
// organization.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FHIRID         string     `db:"fhir_id" json:"fhir_id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Active         bool       `db:"active" json:"active"`
	MRN            string     `db:"mrn" json:"mrn"`
	Prefix         *string    `db:"prefix" json:"prefix,omitempty"`
	FirstName      string     `db:"first_name" json:"first_name"`
	MiddleName     *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	AddressLine1   *string    `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2   *string    `db:"address_line2" json:"address_line2,omitempty"`
	City           *string    `db:"city" json:"city,omitempty"`
	State          *string    `db:"state" json:"state,omitempty"`
	PostalCode     *string    `db:"postal_code" json:"postal_code,omitempty"`
	Country        *string    `db:"country" json:"country,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
		"id":           p.FHIRID,
		"active":       p.Active,
		"meta":         fhir.Meta{LastUpdated: p.UpdatedAt},
	}

	name := fhir.HumanName{
		Use:    "official",
		Family: p.LastName,
		Given:  []string{p.FirstName},
	}
	if p.MiddleName != nil {
		name.Given = append(name.Given, *p.MiddleName)
	}
	if p.Prefix != nil {
		name.Prefix = []string{*p.Prefix}
	}
	result["name"] = []fhir.HumanName{name}

	result["identifier"] = []fhir.Identifier{
		{
			Use:   "usual",
			Type:  &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://terminology.hl7.org/CodeSystem/v2-0203", Code: "MR"}}},
			Value: p.MRN,
		},
	}

	if p.Gender != nil {
		result["gender"] = *p.Gender
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}

	var telecoms []fhir.ContactPoint
	if p.Phone != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "phone", Value: *p.Phone})
	}
	if p.Email != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "email", Value: *p.Email})
	}
	if len(telecoms) > 0 {
		result["telecom"] = telecoms
	}

	if p.AddressLine1 != nil {
		addr := fhir.Address{Use: "home"}
		addr.Line = []string{*p.AddressLine1}
		if p.AddressLine2 != nil {
			addr.Line = append(addr.Line, *p.AddressLine2)
		}
		if p.City != nil {
			addr.City = *p.City
		}
		if p.State != nil {
			addr.State = *p.State
		}
		if p.PostalCode != nil {
			addr.PostalCode = *p.PostalCode
		}
		if p.Country != nil {
			addr.Country = *p.Country
		}
		result["address"] = []fhir.Address{addr}
	}

	result["managingOrganization"] = fhir.Reference{
		Reference: fhir.FormatReference("Organization", p.OrganizationID.String()),
	}

	return result
}

// Practitioner maps to the practitioner table.
type Practitioner struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	FHIRID         string     `db:"fhir_id" json:"fhir_id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Active         bool       `db:"active" json:"active"`
	Prefix         *string    `db:"prefix" json:"prefix,omitempty"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	LicenseNumber  *string    `db:"license_number" json:"license_number,omitempty"`
	Specialty      *string    `db:"specialty" json:"specialty,omitempty"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *Practitioner) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           p.FHIRID,
		"active":       p.Active,
		"meta":         fhir.Meta{LastUpdated: p.UpdatedAt},
	}

	name := fhir.HumanName{
		Use:    "official",
		Family: p.LastName,
		Given:  []string{p.FirstName},
	}
	if p.Prefix != nil {
		name.Prefix = []string{*p.Prefix}
	}
	result["name"] = []fhir.HumanName{name}

	if p.LicenseNumber != nil {
		result["identifier"] = []fhir.Identifier{
			{
				Type:  &fhir.CodeableConcept{Coding: []fhir.Coding{{System: "http://terminology.hl7.org/CodeSystem/v2-0203", Code: "MD"}}},
				Value: *p.LicenseNumber,
			},
		}
	}

	if p.Gender != nil {
		result["gender"] = *p.Gender
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}

	var telecoms []fhir.ContactPoint
	if p.Phone != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "phone", Value: *p.Phone})
	}
	if p.Email != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "email", Value: *p.Email})
	}
	if len(telecoms) > 0 {
		result["telecom"] = telecoms
	}

	if p.Specialty != nil {
		result["qualification"] = []map[string]interface{}{
			{
				"code": fhir.CodeableConcept{
					Coding: []fhir.Coding{{Code: *p.Specialty}},
					Text:   *p.Specialty,
				},
			},
		}
	}

	return result
}
