package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass token parsing and access resolution
// entirely: infrastructure endpoints and the login/registration flow that
// issues tokens in the first place.
var publicPaths = map[string]bool{
	"/health":        true,
	"/health/db":     true,
	"/metrics":       true,
	"/auth/login":    true,
	"/auth/register": true,
}

// publicPrefixes lists path prefixes that bypass authentication, e.g. served
// API documentation.
var publicPrefixes = []string{
	"/docs/",
}

// Skipper reports whether the request path should skip authentication. The
// allow-list is checked before any token parsing occurs.
func Skipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether path matches the public allow-list, by exact
// match or prefix.
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
