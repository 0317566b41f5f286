package handler

import (
	"net/http"

	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AskHandler answers free-text questions about the user's statements
type AskHandler struct {
	askService *service.AskService
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(askService *service.AskService) *AskHandler {
	return &AskHandler{askService: askService}
}

// AskRequest is the question body
type AskRequest struct {
	Question string `json:"question" validate:"required,max=1000"`
}

// AskResponse carries the model answer
type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask godoc
// @Summary Ask about statements
// @Description Answer a free text question using the user's stored statements
// @Tags ask
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AskRequest true "Question"
// @Success 200 {object} AskResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /ask [post]
func (h *AskHandler) Ask(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if !h.askService.IsEnabled() {
		return NewServiceUnavailableError(c, "AI questions are disabled (model not configured)")
	}

	var req AskRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	answer, err := h.askService.Ask(c.Request().Context(), userID, req.Question)
	if err != nil {
		return respondError(c, err, "Failed to answer question")
	}

	return c.JSON(http.StatusOK, AskResponse{Answer: answer})
}
