package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation    = "https://gehalt.app/errors/validation"
	ErrorTypeNotFound      = "https://gehalt.app/errors/not-found"
	ErrorTypeUnauthorized  = "https://gehalt.app/errors/unauthorized"
	ErrorTypeForbidden     = "https://gehalt.app/errors/forbidden"
	ErrorTypeConflict      = "https://gehalt.app/errors/conflict"
	ErrorTypeTooLarge      = "https://gehalt.app/errors/too-large"
	ErrorTypeUnprocessable = "https://gehalt.app/errors/unprocessable"
	ErrorTypeUnavailable   = "https://gehalt.app/errors/unavailable"
	ErrorTypeInternal      = "https://gehalt.app/errors/internal"
)

func problem(c echo.Context, status int, errorType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errorType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewTooLargeError creates a payload too large error response
func NewTooLargeError(c echo.Context, detail string) error {
	return problem(c, http.StatusRequestEntityTooLarge, ErrorTypeTooLarge, "Payload Too Large", detail, nil)
}

// NewUnprocessableError creates an unprocessable entity error response
func NewUnprocessableError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnprocessableEntity, ErrorTypeUnprocessable, "Unprocessable Entity", detail, nil)
}

// NewServiceUnavailableError is returned when an optional backend (AI, storage) is not configured
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, nil)
}

// NewInternalError creates an internal server error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// respondError maps domain errors onto problem responses. Anything unknown is
// logged and reported as an internal error with the given detail.
func respondError(c echo.Context, err error, detail string) error {
	switch {
	case errors.Is(err, domain.ErrStatementNotFound):
		return NewNotFoundError(c, "Statement not found")
	case errors.Is(err, domain.ErrDocumentNotFound):
		return NewNotFoundError(c, "Statement has no document")
	case errors.Is(err, domain.ErrAPITokenNotFound):
		return NewNotFoundError(c, "API token not found")
	case errors.Is(err, domain.ErrUserNotFound):
		return NewNotFoundError(c, "User not found")
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, "Resource not found")
	case errors.Is(err, domain.ErrStatementExists):
		return NewConflictError(c, "A statement for this period already exists")
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, "Resource already exists")
	case errors.Is(err, domain.ErrInvalidPeriod):
		return NewValidationError(c, "Invalid period", []ValidationError{
			{Field: "month", Message: "Month must be between 1 and 12"},
			{Field: "year", Message: "Year must be between 1900 and 2100"},
		})
	case errors.Is(err, domain.ErrEmptyImport):
		return NewValidationError(c, "No statements to import", nil)
	case errors.Is(err, domain.ErrInvalidDocument):
		return NewValidationError(c, "Document must be a PDF file", []ValidationError{
			{Field: "file", Message: "Only PDF files are accepted"},
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrDocumentTooLarge):
		return NewTooLargeError(c, "Document must be 10 MB or smaller")
	case errors.Is(err, domain.ErrExtractionFailed):
		log.Warn().Err(err).Str("path", c.Request().URL.Path).Msg("Statement extraction failed")
		return NewUnprocessableError(c, "The document could not be read as a salary statement")
	case errors.Is(err, domain.ErrAINotConfigured):
		return NewServiceUnavailableError(c, "AI features are not configured")
	case errors.Is(err, domain.ErrStorageDisabled):
		return NewServiceUnavailableError(c, "Document storage is not configured")
	case errors.Is(err, domain.ErrTooManyAPITokens):
		return NewValidationError(c, "Maximum number of API tokens reached (10)", nil)
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, "Authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, "Access denied")
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg(detail)
	return NewInternalError(c, detail)
}
