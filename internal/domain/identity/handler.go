package identity

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
	fhirGroup.GET("/Patient", h.SearchPatients)
	fhirGroup.GET("/Patient/:id", h.GetPatient)
	fhirGroup.POST("/Patient", h.CreatePatient, auth.RequireOrganization())
	fhirGroup.PUT("/Patient/:id", h.UpdatePatient, auth.RequireOrganization())
	fhirGroup.DELETE("/Patient/:id", h.DeletePatient, auth.RequireOrganization())

	fhirGroup.GET("/Practitioner", h.SearchPractitioners)
	fhirGroup.GET("/Practitioner/:id", h.GetPractitioner)
	fhirGroup.POST("/Practitioner", h.CreatePractitioner, auth.RequireOrganization())
	fhirGroup.PUT("/Practitioner/:id", h.UpdatePractitioner, auth.RequireOrganization())
	fhirGroup.DELETE("/Practitioner/:id", h.DeletePractitioner, auth.RequireOrganization())
}

func principal(c echo.Context) *auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

// searchParams extracts the supported FHIR search parameters, dropping
// pagination controls which are handled separately.
func searchParams(c echo.Context, supported ...string) map[string]string {
	params := make(map[string]string)
	for _, key := range supported {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}
	return params
}

// -- Patient --

func (h *Handler) SearchPatients(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pg := pagination.FromContext(c)
	params := searchParams(c, "name", "family", "gender", "identifier", "birthdate")

	patients, total, err := h.svc.SearchPatients(c.Request().Context(), p, params, pg.Count, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("patient search failed"))
	}

	resources := make([]map[string]interface{}, len(patients))
	for i, pt := range patients {
		resources[i] = pt.ToFHIR()
	}
	links := toBundleLinks(pg.Links("/fhir/Patient", c.QueryParams(), total))
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir", links))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	return c.JSON(http.StatusOK, patient.ToFHIR())
}

func (h *Handler) CreatePatient(c echo.Context) error {
	p := principal(c)
	var patient Patient
	if err := c.Bind(&patient); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreatePatient(c.Request().Context(), p, &patient); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateMRN):
			return c.JSON(http.StatusConflict, fhir.ConflictOutcome("a patient with this mrn already exists in the organization"))
		case errors.Is(err, ErrMRNRequired):
			return c.JSON(http.StatusBadRequest, fhir.RequiredFieldOutcome("mrn"))
		case errors.Is(err, ErrNoOrganization):
			return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization scope required"))
		default:
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
		}
	}
	c.Response().Header().Set("Location", "/fhir/Patient/"+patient.FHIRID)
	return c.JSON(http.StatusCreated, patient.ToFHIR())
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	p := principal(c)
	existing, err := h.svc.GetPatient(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	var patient Patient
	if err := c.Bind(&patient); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	patient.ID = existing.ID
	patient.FHIRID = existing.FHIRID
	patient.OrganizationID = existing.OrganizationID
	if err := h.svc.UpdatePatient(c.Request().Context(), p, &patient); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateMRN):
			return c.JSON(http.StatusConflict, fhir.ConflictOutcome("a patient with this mrn already exists in the organization"))
		case errors.Is(err, ErrMRNRequired):
			return c.JSON(http.StatusBadRequest, fhir.RequiredFieldOutcome("mrn"))
		default:
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
		}
	}
	return c.JSON(http.StatusOK, patient.ToFHIR())
}

func (h *Handler) DeletePatient(c echo.Context) error {
	p := principal(c)
	if err := h.svc.DeletePatient(c.Request().Context(), p, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
		}
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("delete failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Practitioner --

func (h *Handler) SearchPractitioners(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pg := pagination.FromContext(c)
	params := searchParams(c, "name", "family", "specialty")

	practitioners, total, err := h.svc.SearchPractitioners(c.Request().Context(), p, params, pg.Count, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("practitioner search failed"))
	}

	resources := make([]map[string]interface{}, len(practitioners))
	for i, pr := range practitioners {
		resources[i] = pr.ToFHIR()
	}
	links := toBundleLinks(pg.Links("/fhir/Practitioner", c.QueryParams(), total))
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir", links))
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pr, err := h.svc.GetPractitioner(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	return c.JSON(http.StatusOK, pr.ToFHIR())
}

func (h *Handler) CreatePractitioner(c echo.Context) error {
	p := principal(c)
	var pr Practitioner
	if err := c.Bind(&pr); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), p, &pr); err != nil {
		if errors.Is(err, ErrNoOrganization) {
			return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization scope required"))
		}
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Practitioner/"+pr.FHIRID)
	return c.JSON(http.StatusCreated, pr.ToFHIR())
}

func (h *Handler) UpdatePractitioner(c echo.Context) error {
	p := principal(c)
	existing, err := h.svc.GetPractitioner(c.Request().Context(), p, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	var pr Practitioner
	if err := c.Bind(&pr); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	pr.ID = existing.ID
	pr.FHIRID = existing.FHIRID
	pr.OrganizationID = existing.OrganizationID
	if err := h.svc.UpdatePractitioner(c.Request().Context(), p, &pr); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, pr.ToFHIR())
}

func (h *Handler) DeletePractitioner(c echo.Context) error {
	p := principal(c)
	if err := h.svc.DeletePractitioner(c.Request().Context(), p, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
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
