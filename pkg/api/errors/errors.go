// Package errors provides consistent JSON error responses for API handlers.
// Internal error details are logged server-side and never exposed to clients.
package errors

import (
	stderrors "errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/salespipehq/salespipe/pkg/domain"
	"github.com/salespipehq/salespipe/pkg/models"
)

// ValidationError returns a 400 response for invalid client input. The
// underlying error is logged but the response carries a generic message.
func ValidationError(c echo.Context, err error) error {
	log.Printf("validation error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "The request contains invalid or missing fields",
	})
}

// ValidationMessage returns a 400 response with a safe, client-facing message.
func ValidationMessage(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

// DatabaseError returns a 500 response for storage failures.
func DatabaseError(c echo.Context, err error) error {
	log.Printf("database error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "database_error",
		Message: "A database error occurred",
	})
}

// InternalError returns a 500 response for unexpected failures.
func InternalError(c echo.Context, err error) error {
	log.Printf("internal error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// NotFoundError returns a 404 response for a missing resource.
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: resource + " not found",
	})
}

// ConflictError returns a 409 response.
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message,
	})
}

// FromDomain maps a domain error to the matching HTTP response. Unknown
// errors fall through to InternalError.
func FromDomain(c echo.Context, err error) error {
	var de *domain.DomainError
	if !stderrors.As(err, &de) {
		return InternalError(c, err)
	}
	switch de.Code {
	case domain.ErrCodeNotFound:
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: de.Message,
		})
	case domain.ErrCodeValidation, domain.ErrCodeBadRequest:
		return ValidationMessage(c, de.Message)
	case domain.ErrCodeConflict:
		return ConflictError(c, de.Message)
	case domain.ErrCodeConfiguration:
		log.Printf("configuration error on %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "configuration_error",
			Message: de.Message,
		})
	default:
		return InternalError(c, err)
	}
}
