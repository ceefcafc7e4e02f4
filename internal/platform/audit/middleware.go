package audit

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/auth"
)

// Middleware records access to /fhir/* and /api/v1/* routes. The handler runs
// first so the response status is captured; recording failures are logged and
// never fail the request.
func Middleware(logger zerolog.Logger, recorder Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			event := &Event{
				Recorded:     time.Now().UTC(),
				Action:       methodToAction(req.Method),
				ResourceType: resourceTypeFromPath(path),
				ResourceID:   resourceIDFromPath(path),
				Method:       req.Method,
				Path:         path,
				StatusCode:   c.Response().Status,
				IPAddress:    c.RealIP(),
				UserAgent:    req.UserAgent(),
			}

			if rid, ok := c.Get("request_id").(string); ok {
				event.RequestID = rid
			}

			if p := auth.PrincipalFromContext(req.Context()); p != nil {
				event.UserID = &p.ID
				event.UserEmail = p.Email
				event.UserRole = string(p.Role)
				event.OrganizationID = p.CurrentOrganizationID
			}

			if recorder != nil {
				if recErr := recorder.Record(req.Context(), event); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", event.RequestID).
						Msg("failed to record audit event")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", event.RequestID).
				Str("user_email", event.UserEmail).
				Str("action", event.Action).
				Str("resource_type", event.ResourceType).
				Str("resource_id", event.ResourceID).
				Str("method", event.Method).
				Str("path", event.Path).
				Int("status", event.StatusCode).
				Str("remote_ip", event.IPAddress).
				Msg("record_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/fhir/") || strings.HasPrefix(path, "/api/v1/")
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceTypeFromPath parses the resource type from a URL path:
// /fhir/Patient/123 -> Patient, /api/v1/organizations/123 -> organizations.
func resourceTypeFromPath(path string) string {
	var segments []string
	switch {
	case strings.HasPrefix(path, "/fhir/"):
		segments = strings.Split(strings.TrimPrefix(path, "/fhir/"), "/")
	case strings.HasPrefix(path, "/api/v1/"):
		segments = strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	}
	if len(segments) > 0 && segments[0] != "" {
		return segments[0]
	}
	return "unknown"
}

func resourceIDFromPath(path string) string {
	var segments []string
	switch {
	case strings.HasPrefix(path, "/fhir/"):
		segments = strings.Split(strings.TrimPrefix(path, "/fhir/"), "/")
	case strings.HasPrefix(path, "/api/v1/"):
		segments = strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	}
	if len(segments) > 1 && segments[1] != "" {
		return segments[1]
	}
	return ""
}
