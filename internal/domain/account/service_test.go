package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/internal/platform/token"
)

// -- Mock Repository --

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

// InTx mimics transaction semantics: users created inside fn are discarded
// when fn returns an error.
func (m *mockRepo) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	before := make(map[uuid.UUID]*User, len(m.users))
	for id, u := range m.users {
		before[id] = u
	}
	if err := fn(ctx); err != nil {
		m.users = before
		return err
	}
	return nil
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Active = false
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockRepo) SetLastLogin(_ context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

// -- Mock Granter --

type mockGranter struct {
	grants map[string]string // userID|orgID -> role
	fail   error
}

func newMockGranter() *mockGranter {
	return &mockGranter{grants: make(map[string]string)}
}

func (m *mockGranter) Grant(_ context.Context, userID, orgID uuid.UUID, role string) (bool, error) {
	if m.fail != nil {
		return false, m.fail
	}
	key := userID.String() + "|" + orgID.String()
	if _, ok := m.grants[key]; ok {
		return false, nil
	}
	m.grants[key] = role
	return true, nil
}

func newTestService(repo Repository, granter AccessGranter) *Service {
	codec := token.NewCodec([]byte("test-secret-key-that-is-long-enough"), "carebase")
	return NewService(repo, codec, granter, time.Hour)
}

func TestRegister_CreatesStaffUser(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email:     "Nurse@Clinic.Example",
		Password:  "correct-horse",
		FirstName: "Pat",
		LastName:  "Nurse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "nurse@clinic.example" {
		t.Errorf("expected normalized email, got %s", u.Email)
	}
	if u.Role != auth.RoleStaff {
		t.Errorf("expected staff role, got %s", u.Role)
	}
	if !u.Active {
		t.Error("expected new user to be active")
	}
	if u.PasswordHash == "correct-horse" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct-horse")); err != nil {
		t.Error("stored hash does not verify against the password")
	}
}

func TestRegister_WithOrganizationGrantsAccess(t *testing.T) {
	repo := newMockRepo()
	granter := newMockGranter()
	svc := newTestService(repo, granter)

	orgID := uuid.New()
	u, err := svc.Register(context.Background(), RegisterInput{
		Email:          "staff@clinic.example",
		Password:       "correct-horse",
		FirstName:      "Sam",
		LastName:       "Staff",
		OrganizationID: &orgID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(granter.grants) != 1 {
		t.Fatalf("expected 1 access grant, got %d", len(granter.grants))
	}
	if u.PrimaryOrganizationID == nil || *u.PrimaryOrganizationID != orgID {
		t.Error("expected primary organization to be set from registration")
	}
}

func TestRegister_FailedGrantLeavesNoUser(t *testing.T) {
	repo := newMockRepo()
	granter := newMockGranter()
	granter.fail = errors.New("access table unavailable")
	svc := newTestService(repo, granter)

	orgID := uuid.New()
	in := RegisterInput{
		Email:          "staff@clinic.example",
		Password:       "correct-horse",
		FirstName:      "Sam",
		LastName:       "Staff",
		OrganizationID: &orgID,
	}
	if _, err := svc.Register(context.Background(), in); err == nil {
		t.Fatal("expected error from failed access grant")
	}
	if len(repo.users) != 0 {
		t.Fatalf("expected user creation rolled back, found %d users", len(repo.users))
	}

	// The same registration retried after the fault clears must succeed.
	granter.fail = nil
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("retry after rollback failed: %v", err)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "a@b.example",
		Password:  "short",
		FirstName: "A",
		LastName:  "B",
	})
	if err == nil {
		t.Fatal("expected error for short password")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	in := RegisterInput{Email: "dup@b.example", Password: "correct-horse", FirstName: "A", LastName: "B"}
	if _, err := svc.Register(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Register(context.Background(), in)
	if err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_Succeeds(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "doc@clinic.example", Password: "correct-horse", FirstName: "D", LastName: "Oc",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := svc.Login(context.Background(), LoginInput{
		Email: "doc@clinic.example", Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected a signed token")
	}
	if result.TokenType != "Bearer" {
		t.Errorf("expected Bearer, got %s", result.TokenType)
	}
	if result.User.LastLoginAt == nil {
		t.Error("expected last login timestamp to be recorded")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "doc@clinic.example", Password: "correct-horse", FirstName: "D", LastName: "Oc",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(context.Background(), LoginInput{
		Email: "doc@clinic.example", Password: "wrong-horse11",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)
	_, err := svc.Login(context.Background(), LoginInput{
		Email: "ghost@clinic.example", Password: "correct-horse",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, nil)

	u, err := svc.Register(context.Background(), RegisterInput{
		Email: "gone@clinic.example", Password: "correct-horse", FirstName: "G", LastName: "One",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := repo.Deactivate(context.Background(), u.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginInput{
		Email: "gone@clinic.example", Password: "correct-horse",
	})
	if err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for inactive user, got %v", err)
	}
}

func TestCreateUser_ValidatesRole(t *testing.T) {
	svc := newTestService(newMockRepo(), nil)

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: "x@b.example", Password: "correct-horse", Role: "king",
	})
	if err == nil {
		t.Fatal("expected error for unknown role")
	}

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email: "admin@b.example", Password: "correct-horse", Role: auth.RoleSuperAdmin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != auth.RoleSuperAdmin {
		t.Errorf("expected super_admin, got %s", u.Role)
	}
}
