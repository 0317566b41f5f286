package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// StatementHandler handles salary statement HTTP requests
type StatementHandler struct {
	statementService *service.StatementService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(statementService *service.StatementService) *StatementHandler {
	return &StatementHandler{statementService: statementService}
}

// StatementResponse represents a statement in API responses. The record fields
// use the external snake_case names, metadata is camelCase.
type StatementResponse struct {
	ID uuid.UUID `json:"id"`
	*domain.Statement
	HasDocument bool             `json:"hasDocument"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Warnings    service.Warnings `json:"warnings,omitempty"`
}

// ValidateResponse is returned by the standalone validation endpoint
type ValidateResponse struct {
	Valid    bool             `json:"valid"`
	Warnings service.Warnings `json:"warnings"`
}

// DeleteAllResponse reports how many statements were removed
type DeleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// DocumentURLResponse carries the presigned link to a statement PDF
type DocumentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toStatementResponse(s *domain.Statement, warnings service.Warnings) StatementResponse {
	return StatementResponse{
		ID:          s.ID,
		Statement:   s,
		HasDocument: s.DocumentPath != "",
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Warnings:    warnings,
	}
}

func toStatementResponses(statements []*domain.Statement) []StatementResponse {
	out := make([]StatementResponse, 0, len(statements))
	for _, s := range statements {
		out = append(out, toStatementResponse(s, nil))
	}
	return out
}

// decodeJSON reads the raw request body. Statements and patches carry their
// own lenient decoding, so the echo binder is bypassed.
func decodeJSON(c echo.Context, dest interface{}) (bool, error) {
	if c.Request().Body == nil {
		return false, NewValidationError(c, "Request body is required", nil)
	}
	if err := json.NewDecoder(c.Request().Body).Decode(dest); err != nil {
		return false, NewValidationError(c, "Invalid request body", []ValidationError{
			{Field: "body", Message: "Body must be a JSON object"},
		})
	}
	return true, nil
}

func parseStatementID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseYearParam reads an optional ?year= query parameter
func parseYearParam(c echo.Context) (*int, error) {
	raw := c.QueryParam("year")
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// CreateStatement godoc
// @Summary Create a statement
// @Description Normalize and store a salary statement, returning consistency warnings
// @Tags statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.Statement true "Statement"
// @Success 201 {object} StatementResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /statements [post]
func (h *StatementHandler) CreateStatement(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var input domain.Statement
	if ok, err := decodeJSON(c, &input); !ok {
		return err
	}

	result, err := h.statementService.Create(c.Request().Context(), userID, &input)
	if err != nil {
		return respondError(c, err, "Failed to create statement")
	}

	return c.JSON(http.StatusCreated, toStatementResponse(result.Statement, result.Warnings))
}

// ListStatements godoc
// @Summary List statements
// @Description List the user's statements, newest period first
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param year query int false "Filter by year"
// @Success 200 {array} StatementResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /statements [get]
func (h *StatementHandler) ListStatements(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	year, err := parseYearParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid year format", []ValidationError{{Field: "year", Message: "Must be a valid integer"}})
	}

	statements, err := h.statementService.List(c.Request().Context(), userID, domain.StatementFilter{Year: year})
	if err != nil {
		return respondError(c, err, "Failed to list statements")
	}

	return c.JSON(http.StatusOK, toStatementResponses(statements))
}

// GetStatement godoc
// @Summary Get a statement
// @Description Get a single statement by ID
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Statement ID"
// @Success 200 {object} StatementResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /statements/{id} [get]
func (h *StatementHandler) GetStatement(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, ok := parseStatementID(c)
	if !ok {
		return NewValidationError(c, "Invalid statement ID", nil)
	}

	statement, err := h.statementService.Get(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err, "Failed to get statement")
	}

	return c.JSON(http.StatusOK, toStatementResponse(statement, nil))
}

// UpdateStatement godoc
// @Summary Update a statement
// @Description Apply the present fields onto a stored statement; incomes are replaced when given
// @Tags statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Statement ID"
// @Param request body domain.StatementPatch true "Fields to change"
// @Success 200 {object} StatementResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /statements/{id} [patch]
func (h *StatementHandler) UpdateStatement(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, ok := parseStatementID(c)
	if !ok {
		return NewValidationError(c, "Invalid statement ID", nil)
	}

	var patch domain.StatementPatch
	if ok, err := decodeJSON(c, &patch); !ok {
		return err
	}
	if len(patch.Extra) > 0 {
		log.Debug().Int("count", len(patch.Extra)).Msg("Ignoring unknown statement properties")
	}

	result, err := h.statementService.Update(c.Request().Context(), userID, id, &patch)
	if err != nil {
		return respondError(c, err, "Failed to update statement")
	}

	return c.JSON(http.StatusOK, toStatementResponse(result.Statement, result.Warnings))
}

// ReplaceStatement godoc
// @Summary Replace a statement
// @Description Replace every field of a stored statement
// @Tags statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Statement ID"
// @Param request body domain.Statement true "Statement"
// @Success 200 {object} StatementResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Router /statements/{id} [put]
func (h *StatementHandler) ReplaceStatement(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, ok := parseStatementID(c)
	if !ok {
		return NewValidationError(c, "Invalid statement ID", nil)
	}

	var input domain.Statement
	if ok, err := decodeJSON(c, &input); !ok {
		return err
	}

	result, err := h.statementService.Replace(c.Request().Context(), userID, id, &input)
	if err != nil {
		return respondError(c, err, "Failed to replace statement")
	}

	return c.JSON(http.StatusOK, toStatementResponse(result.Statement, result.Warnings))
}

// DeleteStatement godoc
// @Summary Delete a statement
// @Description Delete a statement and its source document
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Statement ID"
// @Success 204
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /statements/{id} [delete]
func (h *StatementHandler) DeleteStatement(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, ok := parseStatementID(c)
	if !ok {
		return NewValidationError(c, "Invalid statement ID", nil)
	}

	if err := h.statementService.Delete(c.Request().Context(), userID, id); err != nil {
		return respondError(c, err, "Failed to delete statement")
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteAllStatements godoc
// @Summary Delete all statements
// @Description Delete every statement of the current user
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} DeleteAllResponse
// @Failure 401 {object} ProblemDetails
// @Router /statements [delete]
func (h *StatementHandler) DeleteAllStatements(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	deleted, err := h.statementService.DeleteAll(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to delete statements")
	}

	return c.JSON(http.StatusOK, DeleteAllResponse{Deleted: deleted})
}

// ValidateStatement godoc
// @Summary Validate a statement
// @Description Check the gross fields against the income sum without storing anything
// @Tags statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body domain.Statement true "Statement"
// @Success 200 {object} ValidateResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /statements/validate [post]
func (h *StatementHandler) ValidateStatement(c echo.Context) error {
	var input domain.Statement
	if ok, err := decodeJSON(c, &input); !ok {
		return err
	}

	warnings := h.statementService.Validate(&input)
	if warnings == nil {
		warnings = service.Warnings{}
	}

	return c.JSON(http.StatusOK, ValidateResponse{Valid: len(warnings) == 0, Warnings: warnings})
}

// GetDocument godoc
// @Summary Get the source document URL
// @Description Get a presigned URL of the statement's source PDF
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Statement ID"
// @Success 200 {object} DocumentURLResponse
// @Failure 401 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /statements/{id}/document [get]
func (h *StatementHandler) GetDocument(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	id, ok := parseStatementID(c)
	if !ok {
		return NewValidationError(c, "Invalid statement ID", nil)
	}

	url, err := h.statementService.GetDocumentURL(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err, "Failed to create document link")
	}

	return c.JSON(http.StatusOK, DocumentURLResponse{
		URL:       url,
		ExpiresAt: time.Now().Add(service.DocumentURLExpiry),
	})
}
