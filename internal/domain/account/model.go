package account

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

// User maps to the app_user table.
type User struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	Role                  auth.Role  `db:"role" json:"role"`
	Active                bool       `db:"active" json:"active"`
	PrimaryOrganizationID *uuid.UUID `db:"primary_organization_id" json:"primary_organization_id,omitempty"`
	LastLoginAt           *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// RegisterInput is the payload accepted by POST /auth/register.
type RegisterInput struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
}

// CreateUserInput is the payload accepted by POST /api/v1/users.
type CreateUserInput struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      auth.Role `json:"role"`
}

// LoginInput is the payload accepted by POST /auth/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the signed token and the authenticated user.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	User        *User  `json:"user"`
}
