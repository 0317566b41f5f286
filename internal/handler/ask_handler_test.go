package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/dafibh/gehalt/gehalt-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func askRequest(t *testing.T, handler *AskHandler, userID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupUserContext(c, userID)
	require.NoError(t, handler.Ask(c))
	return rec
}

func TestAsk_Success(t *testing.T) {
	repo := testutil.NewMockStatementRepository()
	ai := &testutil.MockAIClient{AnswerText: "Im März 2024 lag dein Netto bei 2000 €."}
	handler := NewAskHandler(service.NewAskService(ai, repo))
	userID := uuid.New()
	st := domain.NewStatement(2024, 3)
	st.UserID = userID
	st.PayoutNetto = domain.AmountFromInt(2000)
	repo.AddStatement(st)

	rec := askRequest(t, handler, userID, `{"question": "Wie hoch war mein Netto im März?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var response AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, ai.AnswerText, response.Answer)
	assert.Contains(t, ai.LastPrompt, "Wie hoch war mein Netto im März?")
}

func TestAsk_MissingQuestion(t *testing.T) {
	handler := NewAskHandler(service.NewAskService(&testutil.MockAIClient{}, testutil.NewMockStatementRepository()))

	rec := askRequest(t, handler, uuid.New(), `{"question": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	details := decodeProblem(t, rec)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "question", details.Errors[0].Field)
}

func TestAsk_QuestionTooLong(t *testing.T) {
	handler := NewAskHandler(service.NewAskService(&testutil.MockAIClient{}, testutil.NewMockStatementRepository()))

	rec := askRequest(t, handler, uuid.New(), `{"question": "`+strings.Repeat("ä", 1001)+`"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_Disabled(t *testing.T) {
	handler := NewAskHandler(service.NewAskService(nil, testutil.NewMockStatementRepository()))

	rec := askRequest(t, handler, uuid.New(), `{"question": "Hallo?"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAsk_ModelFailure(t *testing.T) {
	ai := &testutil.MockAIClient{AnswerErr: errors.New("upstream timeout")}
	handler := NewAskHandler(service.NewAskService(ai, testutil.NewMockStatementRepository()))

	rec := askRequest(t, handler, uuid.New(), `{"question": "Hallo?"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
