package fhir

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo HTTPErrorHandler that renders every failure as
// an OperationOutcome envelope. Status codes map onto the issue-type taxonomy:
// 401 login, 403 forbidden, 404 not-found, 409 conflict, 429 throttled,
// anything else exception.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "internal server error"

		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = fmt.Sprintf("%v", he.Message)
			}
		}

		var outcome *OperationOutcome
		switch status {
		case http.StatusUnauthorized:
			outcome = UnauthorizedOutcome(message)
		case http.StatusForbidden:
			outcome = ForbiddenOutcome(message)
		case http.StatusNotFound:
			outcome = NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, message)
		case http.StatusConflict:
			outcome = NewOperationOutcome(IssueSeverityError, IssueTypeConflict, message)
		case http.StatusTooManyRequests:
			outcome = NewOperationOutcome(IssueSeverityError, IssueTypeThrottled, message)
		case http.StatusBadRequest:
			outcome = NewOperationOutcome(IssueSeverityError, IssueTypeInvalid, message)
		default:
			if status >= 500 {
				// Never leak internals on unexpected failures.
				logger.Error().Err(err).
					Str("path", c.Request().URL.Path).
					Int("status", status).
					Msg("unhandled error")
				outcome = InternalErrorOutcome("internal server error")
			} else {
				outcome = NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, message)
			}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, outcome)
	}
}
