package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

// storePG implements AccessStore against the app_user, organization, and
// user_organization_access tables.
type storePG struct {
	pool *pgxpool.Pool
}

func NewAccessStorePG(pool *pgxpool.Pool) AccessStore {
	return &storePG{pool: pool}
}

func (s *storePG) conn(ctx context.Context) db.Querier {
	return db.Resolve(ctx, s.pool)
}

func (s *storePG) GetIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	var ident Identity
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT id, email, role, active, primary_organization_id
		FROM app_user WHERE id = $1`, userID,
	).Scan(&ident.ID, &ident.Email, &ident.Role, &ident.Active, &ident.PrimaryOrganizationID)
	if err != nil {
		return nil, fmt.Errorf("get identity %s: %w", userID, err)
	}
	return &ident, nil
}

func (s *storePG) ListActiveAccess(ctx context.Context, userID uuid.UUID) ([]OrganizationAccess, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT a.organization_id, o.name, a.role, a.status, a.permissions
		FROM user_organization_access a
		JOIN organization o ON o.id = a.organization_id
		WHERE a.user_id = $1 AND a.status = 'active' AND o.active = true
		ORDER BY a.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list access for %s: %w", userID, err)
	}
	defer rows.Close()

	var access []OrganizationAccess
	for rows.Next() {
		var a OrganizationAccess
		if err := rows.Scan(&a.OrganizationID, &a.OrganizationName, &a.Role, &a.Status, &a.Permissions); err != nil {
			return nil, fmt.Errorf("scan access row: %w", err)
		}
		access = append(access, a)
	}
	return access, rows.Err()
}

func (s *storePG) ListActiveOrganizations(ctx context.Context) ([]OrganizationRef, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, name FROM organization WHERE active = true ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list active organizations: %w", err)
	}
	defer rows.Close()

	var orgs []OrganizationRef
	for rows.Next() {
		var o OrganizationRef
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan organization row: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// UpsertAccess is the one place where insert-under-race must be idempotent:
// ON CONFLICT DO NOTHING makes a concurrent duplicate a no-op instead of a
// unique-constraint failure.
func (s *storePG) UpsertAccess(ctx context.Context, userID, orgID uuid.UUID, role string) (bool, error) {
	tag, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO user_organization_access (id, user_id, organization_id, role, status)
		VALUES ($1, $2, $3, $4, 'active')
		ON CONFLICT (user_id, organization_id) DO NOTHING`,
		uuid.New(), userID, orgID, role)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("upsert access (%s, %s): %w", userID, orgID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *storePG) SetPrimaryOrganization(ctx context.Context, userID, orgID uuid.UUID) error {
	_, err := s.conn(ctx).Exec(ctx, `
		UPDATE app_user SET primary_organization_id = $2, updated_at = NOW()
		WHERE id = $1 AND primary_organization_id IS NULL`, userID, orgID)
	if err != nil {
		return fmt.Errorf("set primary organization for %s: %w", userID, err)
	}
	return nil
}
