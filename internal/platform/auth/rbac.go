package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole gates a route group to callers holding at least one of the
// given global roles. super_admin always passes.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if p.IsSuperAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if p.Role == required {
					return next(c)
				}
			}
			names := make([]string, len(roles))
			for i, r := range roles {
				names[i] = string(r)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
		}
	}
}

// RequireOrganization gates organization-scoped routes: a caller with an
// empty effective organization set is rejected.
func RequireOrganization() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if len(p.OrganizationIDs) == 0 || p.CurrentOrganizationID == nil {
				return echo.NewHTTPError(http.StatusForbidden, "no organization access")
			}
			return next(c)
		}
	}
}

// RequireOrgAdmin gates routes that administer the current organization:
// the caller must hold the admin membership role there, or be a super_admin.
func RequireOrgAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if p.IsSuperAdmin() {
				return next(c)
			}
			if p.CurrentOrganizationID == nil || !p.IsOrgAdmin(*p.CurrentOrganizationID) {
				return echo.NewHTTPError(http.StatusForbidden, "organization admin role required")
			}
			return next(c)
		}
	}
}
