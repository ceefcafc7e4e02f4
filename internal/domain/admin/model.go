package admin

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/fhir"
)

// Organization maps to the organization table.
type Organization struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	FHIRID       string     `db:"fhir_id" json:"fhir_id"`
	Name         string     `db:"name" json:"name"`
	TypeCode     string     `db:"type_code" json:"type_code"`
	Active       bool       `db:"active" json:"active"`
	ParentOrgID  *uuid.UUID `db:"parent_org_id" json:"parent_org_id,omitempty"`
	AddressLine1 *string    `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2 *string    `db:"address_line2" json:"address_line2,omitempty"`
	City         *string    `db:"city" json:"city,omitempty"`
	State        *string    `db:"state" json:"state,omitempty"`
	PostalCode   *string    `db:"postal_code" json:"postal_code,omitempty"`
	Country      *string    `db:"country" json:"country,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	Website      *string    `db:"website" json:"website,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (o *Organization) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Organization",
		"id":           o.FHIRID,
		"active":       o.Active,
		"name":         o.Name,
		"meta":         fhir.Meta{LastUpdated: o.UpdatedAt},
	}

	if o.TypeCode != "" {
		result["type"] = []fhir.CodeableConcept{
			{
				Coding: []fhir.Coding{{
					System: "http://terminology.hl7.org/CodeSystem/organization-type",
					Code:   o.TypeCode,
				}},
			},
		}
	}

	var telecoms []fhir.ContactPoint
	if o.Phone != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "phone", Value: *o.Phone})
	}
	if o.Email != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "email", Value: *o.Email})
	}
	if o.Website != nil {
		telecoms = append(telecoms, fhir.ContactPoint{System: "url", Value: *o.Website})
	}
	if len(telecoms) > 0 {
		result["telecom"] = telecoms
	}

	if o.AddressLine1 != nil {
		addr := fhir.Address{Use: "work"}
		addr.Line = append(addr.Line, *o.AddressLine1)
		if o.AddressLine2 != nil {
			addr.Line = append(addr.Line, *o.AddressLine2)
		}
		if o.City != nil {
			addr.City = *o.City
		}
		if o.State != nil {
			addr.State = *o.State
		}
		if o.PostalCode != nil {
			addr.PostalCode = *o.PostalCode
		}
		if o.Country != nil {
			addr.Country = *o.Country
		}
		result["address"] = []fhir.Address{addr}
	}

	if o.ParentOrgID != nil {
		result["partOf"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", o.ParentOrgID.String()),
		}
	}

	return result
}

// AccessGrant maps to the user_organization_access table.
type AccessGrant struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Role           string    `db:"role" json:"role"`
	Status         string    `db:"status" json:"status"`
	Permissions    []string  `db:"permissions" json:"permissions"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
