package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRepo) {
	repo := newMockRepo()
	svc := newTestService(repo, newMockGranter())
	return NewHandler(svc), repo
}

func postJSON(t *testing.T, h echo.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestHandler_Register(t *testing.T) {
	h, _ := newTestHandler()

	rec := postJSON(t, h.Register, "/auth/register",
		`{"email":"new@clinic.example","password":"correct-horse","first_name":"N","last_name":"Ew"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var u User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Email != "new@clinic.example" {
		t.Errorf("unexpected email %s", u.Email)
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("password hash leaked in response")
	}
}

func TestHandler_Register_DuplicateConflict(t *testing.T) {
	h, _ := newTestHandler()
	body := `{"email":"dup@clinic.example","password":"correct-horse","first_name":"D","last_name":"Up"}`

	postJSON(t, h.Register, "/auth/register", body)
	rec := postJSON(t, h.Register, "/auth/register", body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "OperationOutcome") {
		t.Error("expected OperationOutcome envelope")
	}
}

func TestHandler_Login(t *testing.T) {
	h, _ := newTestHandler()
	postJSON(t, h.Register, "/auth/register",
		`{"email":"doc@clinic.example","password":"correct-horse","first_name":"D","last_name":"Oc"}`)

	rec := postJSON(t, h.Login, "/auth/login",
		`{"email":"doc@clinic.example","password":"correct-horse"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("expected access token in response")
	}
}

func TestHandler_Login_BadCredentials(t *testing.T) {
	h, _ := newTestHandler()

	rec := postJSON(t, h.Login, "/auth/login",
		`{"email":"ghost@clinic.example","password":"whatever-long"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"login"`) {
		t.Errorf("expected login issue code, got %s", rec.Body.String())
	}
}

func TestHandler_Me(t *testing.T) {
	h, repo := newTestHandler()

	u := &User{Email: "me@clinic.example", Role: auth.RoleStaff, Active: true}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("create: %v", err)
	}

	orgID := uuid.New()
	p := &auth.Principal{
		ID:                    u.ID,
		Email:                 u.Email,
		Role:                  auth.RoleStaff,
		OrganizationIDs:       []uuid.UUID{orgID},
		CurrentOrganizationID: &orgID,
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "current_organization_id") {
		t.Error("expected organization scope in response")
	}
}

func TestHandler_GetUser_InvalidID(t *testing.T) {
	h, _ := newTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
