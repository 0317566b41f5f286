package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ExtractHandler handles PDF statement extraction
type ExtractHandler struct {
	extractionService *service.ExtractionService
}

// NewExtractHandler creates a new ExtractHandler
func NewExtractHandler(extractionService *service.ExtractionService) *ExtractHandler {
	return &ExtractHandler{extractionService: extractionService}
}

// ExtractResponse wraps the extracted statement. Saved is false for drafts.
type ExtractResponse struct {
	Saved     bool              `json:"saved"`
	Statement StatementResponse `json:"statement"`
}

// Extract godoc
// @Summary Extract a statement from a PDF
// @Description Read a payslip PDF with the language model and return the normalized draft
// @Tags statements
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Payslip PDF (max 10 MB)"
// @Param save query bool false "Store the statement and its PDF"
// @Success 200 {object} ExtractResponse
// @Success 201 {object} ExtractResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 413 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /statements/extract [post]
func (h *ExtractHandler) Extract(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if !h.extractionService.IsEnabled() {
		return NewServiceUnavailableError(c, "AI extraction is disabled (model not configured)")
	}

	save := false
	if raw := c.QueryParam("save"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return NewValidationError(c, "Invalid save flag", []ValidationError{{Field: "save", Message: "Must be true or false"}})
		}
		save = parsed
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > domain.MaxDocumentSize {
		return respondError(c, domain.ErrDocumentTooLarge, "")
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	// one byte past the limit is enough to reject oversized uploads
	data, err := io.ReadAll(io.LimitReader(src, domain.MaxDocumentSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	result, err := h.extractionService.Extract(c.Request().Context(), userID, data, save)
	if err != nil {
		return respondError(c, err, "Failed to extract statement")
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("filename", file.Filename).
		Bool("saved", result.Saved).
		Int("warnings", len(result.Warnings)).
		Msg("Statement extracted")

	status := http.StatusOK
	if result.Saved {
		status = http.StatusCreated
	}
	return c.JSON(status, ExtractResponse{
		Saved:     result.Saved,
		Statement: toStatementResponse(result.Statement, result.Warnings),
	})
}
