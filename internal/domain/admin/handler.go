package admin

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	orgs := api.Group("/organizations")
	orgs.POST("", h.CreateOrganization, auth.RequireRole(auth.RoleSuperAdmin))
	orgs.GET("", h.ListOrganizations)
	orgs.GET("/:id", h.GetOrganization)
	orgs.PUT("/:id", h.UpdateOrganization)
	orgs.DELETE("/:id", h.DeactivateOrganization, auth.RequireRole(auth.RoleSuperAdmin))

	orgs.POST("/:id/access", h.GrantAccess)
	orgs.GET("/:id/access", h.ListAccess)
	orgs.PUT("/:id/access/:user_id", h.UpdateAccessRole)
	orgs.DELETE("/:id/access/:user_id", h.RevokeAccess)

	api.GET("/users/:id/access", h.ListUserAccess, auth.RequireRole(auth.RoleSuperAdmin))

	fhirGroup.GET("/Organization", h.SearchOrganizationsFHIR)
	fhirGroup.GET("/Organization/:id", h.GetOrganizationFHIR)
	fhirGroup.POST("/Organization", h.CreateOrganizationFHIR, auth.RequireRole(auth.RoleSuperAdmin))
	fhirGroup.PUT("/Organization/:id", h.UpdateOrganizationFHIR)
}

func principal(c echo.Context) *auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

// -- Operational Handlers --

func (h *Handler) CreateOrganization(c echo.Context) error {
	var o Organization
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateOrganization(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) ListOrganizations(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pg := pagination.FromContext(c)
	orgs, total, err := h.svc.ListOrganizations(c.Request().Context(), p, pg.Count, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("list organizations failed"))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, pg))
}

func (h *Handler) GetOrganization(c echo.Context) error {
	p := principal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	if p == nil || (!p.IsSuperAdmin() && !p.IsMemberOf(id)) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("no access to this organization"))
	}
	o, err := h.svc.GetOrganization(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateOrganization(c echo.Context) error {
	p := principal(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	if p == nil || !p.IsOrgAdmin(id) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	existing, err := h.svc.GetOrganization(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	if err := h.svc.UpdateOrganization(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeactivateOrganization(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	if err := h.svc.DeactivateOrganization(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
		}
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("deactivate failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Access Handlers --

func (h *Handler) GrantAccess(c echo.Context) error {
	p := principal(c)
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	if p == nil || !p.IsOrgAdmin(orgID) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	var g AccessGrant
	if err := c.Bind(&g); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	g.OrganizationID = orgID
	if err := h.svc.GrantAccess(c.Request().Context(), &g); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateGrant):
			return c.JSON(http.StatusConflict, fhir.ConflictOutcome("user already has access to this organization"))
		case errors.Is(err, ErrNotFound):
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", orgID.String()))
		default:
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
		}
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *Handler) ListAccess(c echo.Context) error {
	p := principal(c)
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	if p == nil || !p.IsOrgAdmin(orgID) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	grants, err := h.svc.ListAccess(c.Request().Context(), orgID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("list access failed"))
	}
	return c.JSON(http.StatusOK, grants)
}

func (h *Handler) ListUserAccess(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	grants, err := h.svc.ListUserAccess(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("list access failed"))
	}
	return c.JSON(http.StatusOK, grants)
}

func (h *Handler) UpdateAccessRole(c echo.Context) error {
	p := principal(c)
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid user_id"))
	}
	if p == nil || !p.IsOrgAdmin(orgID) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.UpdateAccessRole(c.Request().Context(), userID, orgID, body.Role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("access grant", userID.String()))
		}
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RevokeAccess(c echo.Context) error {
	p := principal(c)
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid id"))
	}
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid user_id"))
	}
	if p == nil || !p.IsOrgAdmin(orgID) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	if err := h.svc.RevokeAccess(c.Request().Context(), userID, orgID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("access grant", userID.String()))
		}
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("revoke failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR Handlers --

func (h *Handler) SearchOrganizationsFHIR(c echo.Context) error {
	p := principal(c)
	if p == nil {
		return c.JSON(http.StatusUnauthorized, fhir.UnauthorizedOutcome("not authenticated"))
	}
	pg := pagination.FromContext(c)
	orgs, total, err := h.svc.ListOrganizations(c.Request().Context(), p, pg.Count, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.InternalErrorOutcome("search failed"))
	}

	resources := make([]map[string]interface{}, len(orgs))
	for i, o := range orgs {
		resources[i] = o.ToFHIR()
	}
	links := toBundleLinks(pg.Links("/fhir/Organization", c.QueryParams(), total))
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, "/fhir", links))
}

func (h *Handler) GetOrganizationFHIR(c echo.Context) error {
	p := principal(c)
	o, err := h.svc.GetOrganizationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	if p == nil || (!p.IsSuperAdmin() && !p.IsMemberOf(o.ID)) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("no access to this organization"))
	}
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) CreateOrganizationFHIR(c echo.Context) error {
	var o Organization
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateOrganization(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Organization/"+o.FHIRID)
	return c.JSON(http.StatusCreated, o.ToFHIR())
}

func (h *Handler) UpdateOrganizationFHIR(c echo.Context) error {
	p := principal(c)
	existing, err := h.svc.GetOrganizationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	if p == nil || !p.IsOrgAdmin(existing.ID) {
		return c.JSON(http.StatusForbidden, fhir.ForbiddenOutcome("organization admin access required"))
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	if err := h.svc.UpdateOrganization(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func toBundleLinks(links []pagination.Link) []fhir.BundleLink {
	out := make([]fhir.BundleLink, len(links))
	for i, l := range links {
		out[i] = fhir.BundleLink{Relation: l.Relation, URL: l.URL}
	}
	return out
}
