package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/db"
)

// Event is a record access event stored in the audit_event table.
type Event struct {
	ID             uuid.UUID  `json:"id"`
	UserID         *uuid.UUID `json:"user_id"`
	UserEmail      string     `json:"user_email"`
	UserRole       string     `json:"user_role"`
	OrganizationID *uuid.UUID `json:"organization_id"`
	Action         string     `json:"action"` // read, create, update, delete
	ResourceType   string     `json:"resource_type"`
	ResourceID     string     `json:"resource_id"`
	Method         string     `json:"method"`
	Path           string     `json:"path"`
	StatusCode     int        `json:"status_code"`
	IPAddress      string     `json:"ip_address"`
	UserAgent      string     `json:"user_agent"`
	RequestID      string     `json:"request_id"`
	Recorded       time.Time  `json:"recorded"`
}

// Recorder persists audit events. Tests provide mock implementations.
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// RecorderFunc is a function adapter for Recorder.
type RecorderFunc func(ctx context.Context, event *Event) error

func (f RecorderFunc) Record(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// PGRecorder writes audit events to Postgres.
type PGRecorder struct {
	pool *pgxpool.Pool
}

func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

func (r *PGRecorder) Record(ctx context.Context, event *Event) error {
	if event.Recorded.IsZero() {
		event.Recorded = time.Now().UTC()
	}

	const query = `
		INSERT INTO audit_event (
			user_id, user_email, user_role, organization_id,
			action, resource_type, resource_id,
			method, path, status_code,
			ip_address, user_agent, request_id, recorded
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
		) RETURNING id`

	q := db.Resolve(ctx, r.pool)
	err := q.QueryRow(ctx, query,
		event.UserID, event.UserEmail, event.UserRole, event.OrganizationID,
		event.Action, event.ResourceType, event.ResourceID,
		event.Method, event.Path, event.StatusCode,
		event.IPAddress, event.UserAgent, event.RequestID, event.Recorded,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}
