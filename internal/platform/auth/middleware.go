package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/carebase/carebase/internal/platform/token"
)

// HeaderOrganizationID selects the current organization for a request. When
// absent, the identity's primary organization (or first membership) is used.
const HeaderOrganizationID = "X-Organization-ID"

// Middleware verifies the bearer token and resolves the caller's
// authorization context. Public paths (per skipper) bypass everything.
// On success the Principal is attached to the request context; handlers read
// it via PrincipalFromContext.
func Middleware(codec *token.Codec, resolver *Resolver, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := codec.Verify(parts[1])
			if err != nil {
				switch {
				case errors.Is(err, token.ErrExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
			}

			userID, err := claims.UserUUID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			principal, err := resolver.Resolve(
				c.Request().Context(),
				userID,
				c.Request().Header.Get(HeaderOrganizationID),
			)
			if err != nil {
				switch {
				case errors.Is(err, ErrForbidden):
					return echo.NewHTTPError(http.StatusForbidden, err.Error())
				case errors.Is(err, ErrUnauthenticated):
					return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
				default:
					return echo.NewHTTPError(http.StatusInternalServerError, "authorization failed")
				}
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}
