package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/internal/platform/token"
)

var ErrInvalidCredentials = errors.New("account: invalid email or password")

const minPasswordLength = 8

// AccessGranter provisions an organization membership for a user. Duplicate
// grants are reported via the created flag, never as an error.
type AccessGranter interface {
	Grant(ctx context.Context, userID, organizationID uuid.UUID, role string) (created bool, err error)
}

type Service struct {
	repo    Repository
	codec   *token.Codec
	granter AccessGranter
	ttl     time.Duration
}

func NewService(repo Repository, codec *token.Codec, granter AccessGranter, ttl time.Duration) *Service {
	return &Service{repo: repo, codec: codec, granter: granter, ttl: ttl}
}

// Register creates a self-service account with the staff role. When an
// organization is supplied, a member access row is provisioned for it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.FirstName == "" || in.LastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         auth.RoleStaff,
		Active:       true,
	}
	if in.OrganizationID != nil {
		u.PrimaryOrganizationID = in.OrganizationID
	}
	// Create and grant commit together; a failed grant must not leave an
	// orphaned user row behind.
	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, u); err != nil {
			return err
		}
		if in.OrganizationID != nil && s.granter != nil {
			if _, err := s.granter.Grant(ctx, u.ID, *in.OrganizationID, auth.AccessRoleMember); err != nil {
				return fmt.Errorf("account: grant organization access: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies the password and issues a signed token. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.codec.Sign(u.ID, u.Email, string(u.Role), s.ttl)
	if err != nil {
		return nil, fmt.Errorf("account: sign token: %w", err)
	}

	if err := s.repo.SetLastLogin(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("account: record login: %w", err)
	}

	return &LoginResult{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
		User:        u,
	}, nil
}

// CreateUser provisions an account with an explicit role. Super-admin only.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	if err := validateCredentials(in.Email, in.Password); err != nil {
		return nil, err
	}
	if !auth.ValidRole(in.Role) {
		return nil, fmt.Errorf("invalid role %q", in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}

	u := &User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !auth.ValidRole(u.Role) {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return s.repo.Update(ctx, u)
}

func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
