package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/internal/platform/fhir"
	"github.com/carebase/carebase/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(fhirGroup *echo.Group) {
	fhirGroup.GET("/Appointment", h.SearchAppointments)
	fhirGroup.GET("/Appointment/:id", h.GetAppointment)
	fhirGroup.POST("/Appointment", h.CreateAppointment, auth.RequireOrganization())
	fhirGroup.PUT("/Appointment/:id", h.UpdateAppointment, auth.RequireOrganization())
	fhirGroup.POST("/Appointment/:id/$cancel", h.CancelAppointment, auth.RequireOrganization())
	fhirGroup.DELETE("/Appointment/:id", h.DeleteAppointment, auth.RequireOrganization())
}

func principal(c echo.Context) *auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

func (h *Handler) SearchAppointments(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pg := pagination.FromContext(c)
	params := make(map[string]string)
	for _, key := range []string{"status", "patient", "practitioner", "date_from", "date_to"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	appointments, total, err := h.svc.SearchAppointments(c.Request().Context(), p, params, pg.Count, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("appointment search failed"))
	}

	resources := make([]map[string]interface{}, len(appointments))
	for i, a := range appointments {
		resources[i] = a.ToFHIR()
	}
	links := toBundleLinks(pg.Links("/fhir/Appointment", c.QueryParams(), total))
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir", links))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Appointment", c.Param("id")))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	p := principal(c)
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateAppointment(c.Request().Context(), p, &a); err != nil {
		switch {
		case errors.Is(err, ErrNoOrganization):
			return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization scope required"))
		case errors.Is(err, ErrInvalidStatus):
			return c.JSON(http.StatusBadRequest, fhir.ValidationOutcome("status", err.Error()))
		default:
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
		}
	}
	c.Response().Header().Set("Location", "/fhir/Appointment/"+a.FHIRID)
	return c.JSON(http.StatusCreated, a.ToFHIR())
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	p := principal(c)
	existing, err := h.svc.GetAppointment(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Appointment", c.Param("id")))
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	a.ID = existing.ID
	a.FHIRID = existing.FHIRID
	a.OrganizationID = existing.OrganizationID
	if err := h.svc.UpdateAppointment(c.Request().Context(), p, &a); err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, fhir.ValidationOutcome("status", err.Error()))
		}
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	p := principal(c)
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	a, err := h.svc.CancelAppointment(c.Request().Context(), p, c.Param("id"), body.Reason)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Appointment", c.Param("id")))
		}
		return c.JSON(http.StatusConflict, fhir.ConflictOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	p := principal(c)
	if err := h.svc.DeleteAppointment(c.Request().Context(), p, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Appointment", c.Param("id")))
		}
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("delete failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

func toBundleLinks(links []pagination.Link) []fhir.BundleLink {
	out := make([]fhir.BundleLink, len(links))
	for i, l := range links {
		out[i] = fhir.BundleLink{Relation: l.Relation, URL: l.URL}
	}
	return out
}
