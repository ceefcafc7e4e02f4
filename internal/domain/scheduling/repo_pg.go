package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const appointmentCols = `id, fhir_id, organization_id, status, cancellation_reason,
	description, start_time, end_time, minutes_duration,
	patient_id, practitioner_id, reason_text, note, created_at, updated_at`

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.FHIRID == "" {
		a.FHIRID = a.ID.String()
	}
	_, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment (
			id, fhir_id, organization_id, status, cancellation_reason,
			description, start_time, end_time, minutes_duration,
			patient_id, practitioner_id, reason_text, note
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.FHIRID, a.OrganizationID, a.Status, a.CancellationReason,
		a.Description, a.StartTime, a.EndTime, a.MinutesDuration,
		a.PatientID, a.PractitionerID, a.ReasonText, a.Note,
	)
	return err
}

func (r *appointmentRepoPG) GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Resolve(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointment WHERE fhir_id = $1 AND ($2::uuid[] IS NULL OR organization_id = ANY($2))`,
		fhirID, orgIDs))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		UPDATE appointment SET
			status=$2, cancellation_reason=$3, description=$4,
			start_time=$5, end_time=$6, minutes_duration=$7,
			patient_id=$8, practitioner_id=$9, reason_text=$10, note=$11,
			updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.CancellationReason, a.Description,
		a.StartTime, a.EndTime, a.MinutesDuration,
		a.PatientID, a.PractitionerID, a.ReasonText, a.Note,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	where := "($1::uuid[] IS NULL OR organization_id = ANY($1))"
	args := []any{orgIDs}

	if status := params["status"]; status != "" {
		args = append(args, status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if patient := params["patient"]; patient != "" {
		args = append(args, patient)
		where += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if practitioner := params["practitioner"]; practitioner != "" {
		args = append(args, practitioner)
		where += fmt.Sprintf(" AND practitioner_id = $%d", len(args))
	}
	if from := params["date_from"]; from != "" {
		args = append(args, from)
		where += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if to := params["date_to"]; to != "" {
		args = append(args, to)
		where += fmt.Sprintf(" AND start_time < $%d", len(args))
	}

	q := db.Resolve(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM appointment WHERE %s ORDER BY start_time LIMIT $%d OFFSET $%d`,
		appointmentCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appointments []*Appointment
	for rows.Next() {
		a, err := scanAppointmentRow(rows)
		if err != nil {
			return nil, 0, err
		}
		appointments = append(appointments, a)
	}
	return appointments, total, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.FHIRID, &a.OrganizationID, &a.Status, &a.CancellationReason,
		&a.Description, &a.StartTime, &a.EndTime, &a.MinutesDuration,
		&a.PatientID, &a.PractitionerID, &a.ReasonText, &a.Note, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAppointmentRow(rows pgx.Rows) (*Appointment, error) {
	var a Appointment
	err := rows.Scan(
		&a.ID, &a.FHIRID, &a.OrganizationID, &a.Status, &a.CancellationReason,
		&a.Description, &a.StartTime, &a.EndTime, &a.MinutesDuration,
		&a.PatientID, &a.PractitionerID, &a.ReasonText, &a.Note, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
