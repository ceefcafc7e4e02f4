package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, fhir_id, organization_id, active, mrn, prefix,
	first_name, middle_name, last_name, birth_date, gender,
	phone, email, address_line1, address_line2, city, state, postal_code, country,
	created_at, updated_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (
			id, fhir_id, organization_id, active, mrn, prefix,
			first_name, middle_name, last_name, birth_date, gender,
			phone, email, address_line1, address_line2, city, state, postal_code, country
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
		)`,
		p.ID, p.FHIRID, p.OrganizationID, p.Active, p.MRN, p.Prefix,
		p.FirstName, p.MiddleName, p.LastName, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Country,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateMRN
	}
	return err
}

func (r *patientRepoPG) GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Patient, error) {
	return scanPatient(db.Resolve(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE fhir_id = $1 AND ($2::uuid[] IS NULL OR organization_id = ANY($2))`,
		fhirID, orgIDs))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET
			active=$2, mrn=$3, prefix=$4, first_name=$5, middle_name=$6, last_name=$7,
			birth_date=$8, gender=$9, phone=$10, email=$11,
			address_line1=$12, address_line2=$13, city=$14, state=$15, postal_code=$16, country=$17,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Active, p.MRN, p.Prefix, p.FirstName, p.MiddleName, p.LastName,
		p.BirthDate, p.Gender, p.Phone, p.Email,
		p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Country,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateMRN
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	where := "($1::uuid[] IS NULL OR organization_id = ANY($1))"
	args := []any{orgIDs}

	if name := params["name"]; name != "" {
		args = append(args, "%"+name+"%")
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args))
	}
	if family := params["family"]; family != "" {
		args = append(args, "%"+family+"%")
		where += fmt.Sprintf(" AND last_name ILIKE $%d", len(args))
	}
	if gender := params["gender"]; gender != "" {
		args = append(args, gender)
		where += fmt.Sprintf(" AND gender = $%d", len(args))
	}
	if identifier := params["identifier"]; identifier != "" {
		args = append(args, identifier)
		where += fmt.Sprintf(" AND mrn = $%d", len(args))
	}
	if birthdate := params["birthdate"]; birthdate != "" {
		args = append(args, birthdate)
		where += fmt.Sprintf(" AND birth_date = $%d", len(args))
	}

	q := db.Resolve(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patient WHERE %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		patientCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FHIRID, &p.OrganizationID, &p.Active, &p.MRN, &p.Prefix,
		&p.FirstName, &p.MiddleName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode, &p.Country,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRow(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.FHIRID, &p.OrganizationID, &p.Active, &p.MRN, &p.Prefix,
		&p.FirstName, &p.MiddleName, &p.LastName, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode, &p.Country,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Practitioner Repository --

type practitionerRepoPG struct {
	pool *pgxpool.Pool
}

func NewPractitionerRepo(pool *pgxpool.Pool) PractitionerRepository {
	return &practitionerRepoPG{pool: pool}
}

const practitionerCols = `id, fhir_id, organization_id, active, prefix,
	first_name, last_name, gender, birth_date, license_number, specialty,
	phone, email, created_at, updated_at`

func (r *practitionerRepoPG) Create(ctx context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		INSERT INTO practitioner (
			id, fhir_id, organization_id, active, prefix,
			first_name, last_name, gender, birth_date, license_number, specialty,
			phone, email
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		p.ID, p.FHIRID, p.OrganizationID, p.Active, p.Prefix,
		p.FirstName, p.LastName, p.Gender, p.BirthDate, p.LicenseNumber, p.Specialty,
		p.Phone, p.Email,
	)
	return err
}

func (r *practitionerRepoPG) GetByFHIRID(ctx context.Context, fhirID string, orgIDs []uuid.UUID) (*Practitioner, error) {
	return scanPractitioner(db.Resolve(ctx, r.pool).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioner WHERE fhir_id = $1 AND ($2::uuid[] IS NULL OR organization_id = ANY($2))`,
		fhirID, orgIDs))
}

func (r *practitionerRepoPG) Update(ctx context.Context, p *Practitioner) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		UPDATE practitioner SET
			active=$2, prefix=$3, first_name=$4, last_name=$5, gender=$6, birth_date=$7,
			license_number=$8, specialty=$9, phone=$10, email=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Active, p.Prefix, p.FirstName, p.LastName, p.Gender, p.BirthDate,
		p.LicenseNumber, p.Specialty, p.Phone, p.Email,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *practitionerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `DELETE FROM practitioner WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *practitionerRepoPG) Search(ctx context.Context, orgIDs []uuid.UUID, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	where := "($1::uuid[] IS NULL OR organization_id = ANY($1))"
	args := []any{orgIDs}

	if name := params["name"]; name != "" {
		args = append(args, "%"+name+"%")
		where += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args))
	}
	if family := params["family"]; family != "" {
		args = append(args, "%"+family+"%")
		where += fmt.Sprintf(" AND last_name ILIKE $%d", len(args))
	}
	if specialty := params["specialty"]; specialty != "" {
		args = append(args, specialty)
		where += fmt.Sprintf(" AND specialty = $%d", len(args))
	}

	q := db.Resolve(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM practitioner WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM practitioner WHERE %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		practitionerCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var practitioners []*Practitioner
	for rows.Next() {
		p, err := scanPractitionerRow(rows)
		if err != nil {
			return nil, 0, err
		}
		practitioners = append(practitioners, p)
	}
	return practitioners, total, rows.Err()
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(
		&p.ID, &p.FHIRID, &p.OrganizationID, &p.Active, &p.Prefix,
		&p.FirstName, &p.LastName, &p.Gender, &p.BirthDate, &p.LicenseNumber, &p.Specialty,
		&p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPractitionerRow(rows pgx.Rows) (*Practitioner, error) {
	var p Practitioner
	err := rows.Scan(
		&p.ID, &p.FHIRID, &p.OrganizationID, &p.Active, &p.Prefix,
		&p.FirstName, &p.LastName, &p.Gender, &p.BirthDate, &p.LicenseNumber, &p.Specialty,
		&p.Phone, &p.Email, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
