package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/auth"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []*Event
}

func (r *captureRecorder) Record(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func serve(t *testing.T, rec Recorder, method, target string, principal *auth.Principal) *httptest.ResponseRecorder {
	t.Helper()
	logger := zerolog.New(os.Stderr)
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	if principal != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), principal))
	}
	w := httptest.NewRecorder()
	c := e.NewContext(req, w)

	handler := Middleware(logger, rec)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return w
}

func TestMiddleware_RecordsFHIRAccess(t *testing.T) {
	rec := &captureRecorder{}
	orgID := uuid.New()
	p := &auth.Principal{
		ID:                    uuid.New(),
		Email:                 "doc@clinic.example",
		Role:                  auth.RolePractitioner,
		CurrentOrganizationID: &orgID,
	}

	serve(t, rec, http.MethodGet, "/fhir/Patient/"+uuid.New().String(), p)

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != "read" {
		t.Errorf("expected action read, got %s", evt.Action)
	}
	if evt.ResourceType != "Patient" {
		t.Errorf("expected resource type Patient, got %s", evt.ResourceType)
	}
	if evt.ResourceID == "" {
		t.Error("expected resource id to be extracted from path")
	}
	if evt.UserEmail != "doc@clinic.example" {
		t.Errorf("expected user email, got %s", evt.UserEmail)
	}
	if evt.OrganizationID == nil || *evt.OrganizationID != orgID {
		t.Error("expected current organization id on event")
	}
	if evt.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", evt.StatusCode)
	}
}

func TestMiddleware_SkipsNonAuditablePaths(t *testing.T) {
	rec := &captureRecorder{}
	serve(t, rec, http.MethodGet, "/health", nil)

	if len(rec.events) != 0 {
		t.Fatalf("expected no events for /health, got %d", len(rec.events))
	}
}

func TestMiddleware_RecorderFailureDoesNotFailRequest(t *testing.T) {
	rec := RecorderFunc(func(context.Context, *Event) error {
		return errors.New("sink unavailable")
	})
	w := serve(t, rec, http.MethodPost, "/api/v1/organizations", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected handler result to stand, got %d", w.Code)
	}
}

func TestMethodToAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:    "read",
		http.MethodPost:   "create",
		http.MethodPut:    "update",
		http.MethodPatch:  "update",
		http.MethodDelete: "delete",
	}
	for method, want := range cases {
		if got := methodToAction(method); got != want {
			t.Errorf("%s: expected %s, got %s", method, want, got)
		}
	}
}

func TestResourceTypeFromPath(t *testing.T) {
	cases := map[string]string{
		"/fhir/Patient":             "Patient",
		"/fhir/Appointment/abc":     "Appointment",
		"/api/v1/organizations":     "organizations",
		"/api/v1/organizations/xyz": "organizations",
		"/fhir/":                    "unknown",
	}
	for path, want := range cases {
		if got := resourceTypeFromPath(path); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}
