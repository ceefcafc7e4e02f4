package admin

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

// -- Organization Repository --

type orgRepoPG struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) OrganizationRepository {
	return &orgRepoPG{pool: pool}
}

const orgCols = `id, fhir_id, name, type_code, active, parent_org_id,
	address_line1, address_line2, city, state, postal_code, country,
	phone, email, website, created_at, updated_at`

func (r *orgRepoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	if o.FHIRID == "" {
		o.FHIRID = o.ID.String()
	}
	_, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		INSERT INTO organization (
			id, fhir_id, name, type_code, active, parent_org_id,
			address_line1, address_line2, city, state, postal_code, country,
			phone, email, website
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.FHIRID, o.Name, o.TypeCode, o.Active, o.ParentOrgID,
		o.AddressLine1, o.AddressLine2, o.City, o.State, o.PostalCode, o.Country,
		o.Phone, o.Email, o.Website,
	)
	return err
}

func (r *orgRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrg(db.Resolve(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE id = $1`, id))
}

func (r *orgRepoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Organization, error) {
	return scanOrg(db.Resolve(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orgCols+` FROM organization WHERE fhir_id = $1`, fhirID))
}

func (r *orgRepoPG) Update(ctx context.Context, o *Organization) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		UPDATE organization SET
			name=$2, type_code=$3, active=$4, parent_org_id=$5,
			address_line1=$6, address_line2=$7, city=$8, state=$9, postal_code=$10, country=$11,
			phone=$12, email=$13, website=$14, updated_at=NOW()
		WHERE id = $1`,
		o.ID, o.Name, o.TypeCode, o.Active, o.ParentOrgID,
		o.AddressLine1, o.AddressLine2, o.City, o.State, o.PostalCode, o.Country,
		o.Phone, o.Email, o.Website,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orgRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx,
		`UPDATE organization SET active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orgRepoPG) List(ctx context.Context, ids []uuid.UUID, limit, offset int) ([]*Organization, int, error) {
	q := db.Resolve(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM organization WHERE id = ANY($1)`, ids).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+orgCols+` FROM organization WHERE id = ANY($1) ORDER BY name LIMIT $2 OFFSET $3`,
		ids, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectOrgs(rows, total)
}

func (r *orgRepoPG) ListAll(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	q := db.Resolve(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM organization`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+orgCols+` FROM organization ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectOrgs(rows, total)
}

func collectOrgs(rows pgx.Rows, total int) ([]*Organization, int, error) {
	var orgs []*Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(
			&o.ID, &o.FHIRID, &o.Name, &o.TypeCode, &o.Active, &o.ParentOrgID,
			&o.AddressLine1, &o.AddressLine2, &o.City, &o.State, &o.PostalCode, &o.Country,
			&o.Phone, &o.Email, &o.Website, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, &o)
	}
	return orgs, total, rows.Err()
}

func scanOrg(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(
		&o.ID, &o.FHIRID, &o.Name, &o.TypeCode, &o.Active, &o.ParentOrgID,
		&o.AddressLine1, &o.AddressLine2, &o.City, &o.State, &o.PostalCode, &o.Country,
		&o.Phone, &o.Email, &o.Website, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// -- Access Repository --

type accessRepoPG struct {
	pool *pgxpool.Pool
}

func NewAccessRepo(pool *pgxpool.Pool) AccessRepository {
	return &accessRepoPG{pool: pool}
}

const grantCols = `id, user_id, organization_id, role, status, permissions, created_at, updated_at`

func (r *accessRepoPG) Grant(ctx context.Context, g *AccessGrant) (bool, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Status == "" {
		g.Status = "active"
	}
	if g.Permissions == nil {
		g.Permissions = []string{}
	}
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		INSERT INTO user_organization_access (id, user_id, organization_id, role, status, permissions)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id, organization_id) DO NOTHING`,
		g.ID, g.UserID, g.OrganizationID, g.Role, g.Status, g.Permissions,
	)
	if db.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *accessRepoPG) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*AccessGrant, error) {
	rows, err := db.Resolve(ctx, r.pool).Query(ctx,
		`SELECT `+grantCols+` FROM user_organization_access WHERE organization_id = $1 ORDER BY created_at`,
		organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *accessRepoPG) ListByUser(ctx context.Context, userID uuid.UUID) ([]*AccessGrant, error) {
	rows, err := db.Resolve(ctx, r.pool).Query(ctx,
		`SELECT `+grantCols+` FROM user_organization_access WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (r *accessRepoPG) Revoke(ctx context.Context, userID, organizationID uuid.UUID) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx,
		`DELETE FROM user_organization_access WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessRepoPG) UpdateRole(ctx context.Context, userID, organizationID uuid.UUID, role string) error {
	tag, err := db.Resolve(ctx, r.pool).Exec(ctx, `
		UPDATE user_organization_access SET role = $3, updated_at = NOW()
		WHERE user_id = $1 AND organization_id = $2`,
		userID, organizationID, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectGrants(rows pgx.Rows) ([]*AccessGrant, error) {
	var grants []*AccessGrant
	for rows.Next() {
		var g AccessGrant
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.OrganizationID, &g.Role, &g.Status, &g.Permissions,
			&g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, err
		}
		grants = append(grants, &g)
	}
	return grants, rows.Err()
}
