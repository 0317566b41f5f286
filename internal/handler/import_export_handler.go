package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ImportExportHandler handles bulk statement import and export
type ImportExportHandler struct {
	importExportService *service.ImportExportService
}

// NewImportExportHandler creates a new ImportExportHandler
func NewImportExportHandler(importExportService *service.ImportExportService) *ImportExportHandler {
	return &ImportExportHandler{importExportService: importExportService}
}

// Import godoc
// @Summary Import statements
// @Description Import a JSON document or a multipart CSV upload in the "file" field. The batch is stored atomically.
// @Tags import-export
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param request body service.ImportRequest false "JSON import document"
// @Param file formData file false "CSV file"
// @Param replace query bool false "Delete all statements first (CSV uploads)"
// @Success 200 {object} service.ImportResult
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /statements/import [post]
func (h *ImportExportHandler) Import(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req service.ImportRequest
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		statements, replace, ok, err := h.readCSVUpload(c)
		if !ok {
			return err
		}
		req = service.ImportRequest{Statements: statements, Replace: replace}
	} else {
		if ok, err := decodeJSON(c, &req); !ok {
			return err
		}
		if raw := c.QueryParam("replace"); raw != "" {
			replace, err := strconv.ParseBool(raw)
			if err != nil {
				return NewValidationError(c, "Invalid replace flag", []ValidationError{{Field: "replace", Message: "Must be true or false"}})
			}
			req.Replace = replace
		}
	}

	result, err := h.importExportService.Import(c.Request().Context(), userID, req.Statements, req.Replace)
	if err != nil {
		return respondError(c, err, "Failed to import statements")
	}

	return c.JSON(http.StatusOK, result)
}

func (h *ImportExportHandler) readCSVUpload(c echo.Context) ([]*domain.Statement, bool, bool, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, false, false, NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}

	replace := false
	if raw := c.FormValue("replace"); raw != "" {
		replace, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, false, false, NewValidationError(c, "Invalid replace flag", []ValidationError{{Field: "replace", Message: "Must be true or false"}})
		}
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return nil, false, false, NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	statements, err := service.ReadCSV(src)
	if err != nil {
		return nil, false, false, respondError(c, err, "Failed to read CSV file")
	}
	return statements, replace, true, nil
}

// Export godoc
// @Summary Export statements
// @Description Export every statement of the current user as JSON or CSV
// @Tags import-export
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "json or csv" Enums(json, csv)
// @Success 200 {object} service.ExportDocument
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /statements/export [get]
func (h *ImportExportHandler) Export(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		return NewValidationError(c, "Invalid export format", []ValidationError{
			{Field: "format", Message: "Must be one of: json, csv"},
		})
	}

	doc, err := h.importExportService.Export(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to export statements")
	}

	filename := fmt.Sprintf("gehalt-export-%s.%s", doc.ExportedAt.Format("2006-01-02"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))

	if format == "json" {
		return c.JSON(http.StatusOK, doc)
	}

	var buf bytes.Buffer
	if err := service.WriteCSV(&buf, doc.Statements); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("Failed to render CSV export")
		return NewInternalError(c, "Failed to export statements")
	}
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
