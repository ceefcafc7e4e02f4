package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/fhir"
)

// Appointment maps to the appointment table (FHIR Appointment resource).
// Appointments belong to exactly one organization, same as patients.
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FHIRID             string     `db:"fhir_id" json:"fhir_id"`
	OrganizationID     uuid.UUID  `db:"organization_id" json:"organization_id"`
	Status             string     `db:"status" json:"status"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	Description        *string    `db:"description" json:"description,omitempty"`
	StartTime          time.Time  `db:"start_time" json:"start_time"`
	EndTime            *time.Time `db:"end_time" json:"end_time,omitempty"`
	MinutesDuration    *int       `db:"minutes_duration" json:"minutes_duration,omitempty"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	PractitionerID     *uuid.UUID `db:"practitioner_id" json:"practitioner_id,omitempty"`
	ReasonText         *string    `db:"reason_text" json:"reason_text,omitempty"`
	Note               *string    `db:"note" json:"note,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

func (a *Appointment) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Appointment",
		"id":           a.FHIRID,
		"status":       a.Status,
		"start":        a.StartTime.Format(time.RFC3339),
		"meta":         fhir.Meta{LastUpdated: a.UpdatedAt},
	}
	if a.EndTime != nil {
		result["end"] = a.EndTime.Format(time.RFC3339)
	}
	if a.MinutesDuration != nil {
		result["minutesDuration"] = *a.MinutesDuration
	}
	if a.Description != nil {
		result["description"] = *a.Description
	}
	if a.ReasonText != nil {
		result["reasonCode"] = []fhir.CodeableConcept{{Text: *a.ReasonText}}
	}
	if a.CancellationReason != nil {
		result["cancelationReason"] = fhir.CodeableConcept{Text: *a.CancellationReason}
	}
	if a.Note != nil {
		result["comment"] = *a.Note
	}

	participants := []map[string]interface{}{
		{
			"actor":  fhir.Reference{Reference: fhir.FormatReference("Patient", a.PatientID.String())},
			"status": "accepted",
		},
	}
	if a.PractitionerID != nil {
		participants = append(participants, map[string]interface{}{
			"actor":  fhir.Reference{Reference: fhir.FormatReference("Practitioner", a.PractitionerID.String())},
			"status": "accepted",
		})
	}
	result["participant"] = participants

	return result
}
