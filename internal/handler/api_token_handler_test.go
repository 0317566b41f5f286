package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/dafibh/gehalt/gehalt-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestGetAPITokens_Success(t *testing.T) {
	e := echo.New()
	tokenRepo := testutil.NewMockAPITokenRepository()
	handler := NewAPITokenHandler(service.NewAPITokenService(tokenRepo))

	userID := uuid.New()
	tokenRepo.AddToken(&domain.APIToken{ID: uuid.New(), UserID: userID, Description: "mine", TokenPrefix: "gehalt_abc..."})
	tokenRepo.AddToken(&domain.APIToken{ID: uuid.New(), UserID: uuid.New(), Description: "other", TokenPrefix: "gehalt_def..."})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/api-tokens", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupUserContext(c, userID)

	err := handler.GetAPITokens(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var tokens []domain.APITokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(tokens) != 1 || tokens[0].Description != "mine" {
		t.Errorf("Expected only the user's token, got %+v", tokens)
	}
	if strings.Contains(rec.Body.String(), "tokenHash") {
		t.Error("Token hash must never be exposed")
	}
}

func TestGetAPITokens_MissingUser(t *testing.T) {
	e := echo.New()
	handler := NewAPITokenHandler(service.NewAPITokenService(testutil.NewMockAPITokenRepository()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/api-tokens", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Identity only, no provisioned user
	setupAuthContext(c, "auth0|test", "test@example.com", "Test", "")

	err := handler.GetAPITokens(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCreateAPIToken_Success(t *testing.T) {
	e := echo.New()
	tokenRepo := testutil.NewMockAPITokenRepository()
	handler := NewAPITokenHandler(service.NewAPITokenService(tokenRepo))
	userID := uuid.New()

	reqBody := `{"description": "Test token"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-tokens", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupUserContext(c, userID)

	err := handler.CreateAPIToken(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rec.Code)
	}

	var response domain.CreateAPITokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Description != "Test token" {
		t.Errorf("Expected description 'Test token', got %s", response.Description)
	}
	if !strings.HasPrefix(response.Token, domain.APITokenPrefix) {
		t.Errorf("Expected token to start with %q, got %s", domain.APITokenPrefix, response.Token)
	}
	if response.Warning == "" {
		t.Error("Expected a one-time display warning")
	}

	stored := tokenRepo.Tokens[response.ID]
	if stored == nil || stored.UserID != userID {
		t.Errorf("Expected token stored for user %s", userID)
	}
}

func TestCreateAPIToken_MissingDescription(t *testing.T) {
	e := echo.New()
	handler := NewAPITokenHandler(service.NewAPITokenService(testutil.NewMockAPITokenRepository()))

	reqBody := `{"description": ""}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-tokens", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupUserContext(c, uuid.New())

	err := handler.CreateAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	details := decodeProblem(t, rec)
	if len(details.Errors) != 1 || details.Errors[0].Field != "description" {
		t.Errorf("Expected a single error for field 'description', got %+v", details.Errors)
	}
}

func TestCreateAPIToken_DescriptionTooLong(t *testing.T) {
	e := echo.New()
	handler := NewAPITokenHandler(service.NewAPITokenService(testutil.NewMockAPITokenRepository()))

	reqBody := `{"description": "` + strings.Repeat("x", domain.MaxAPITokenDescription+1) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-tokens", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupUserContext(c, uuid.New())

	err := handler.CreateAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateAPIToken_LimitReached(t *testing.T) {
	e := echo.New()
	tokenRepo := testutil.NewMockAPITokenRepository()
	handler := NewAPITokenHandler(service.NewAPITokenService(tokenRepo))
	userID := uuid.New()
	for i := 0; i < 10; i++ {
		tokenRepo.AddToken(&domain.APIToken{ID: uuid.New(), UserID: userID, Description: "t"})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/api-tokens", strings.NewReader(`{"description": "one more"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupUserContext(c, userID)

	err := handler.CreateAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestRevokeAPIToken_Success(t *testing.T) {
	e := echo.New()
	tokenRepo := testutil.NewMockAPITokenRepository()
	handler := NewAPITokenHandler(service.NewAPITokenService(tokenRepo))
	userID := uuid.New()

	token := &domain.APIToken{
		ID:          uuid.New(),
		UserID:      userID,
		Description: "Test token",
		TokenHash:   "somehash",
		TokenPrefix: "gehalt_abc...",
	}
	tokenRepo.AddToken(token)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/api-tokens/"+token.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(token.ID.String())

	setupUserContext(c, userID)

	err := handler.RevokeAPIToken(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
	if token.RevokedAt == nil {
		t.Error("Expected token to be revoked")
	}
}

func TestRevokeAPIToken_NotFound(t *testing.T) {
	e := echo.New()
	handler := NewAPITokenHandler(service.NewAPITokenService(testutil.NewMockAPITokenRepository()))
	nonExistentID := uuid.New()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/api-tokens/"+nonExistentID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(nonExistentID.String())

	setupUserContext(c, uuid.New())

	err := handler.RevokeAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestRevokeAPIToken_InvalidID(t *testing.T) {
	e := echo.New()
	handler := NewAPITokenHandler(service.NewAPITokenService(testutil.NewMockAPITokenRepository()))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/api-tokens/invalid-uuid", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("invalid-uuid")

	setupUserContext(c, uuid.New())

	err := handler.RevokeAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestRevokeAPIToken_OtherUsersToken(t *testing.T) {
	e := echo.New()
	tokenRepo := testutil.NewMockAPITokenRepository()
	handler := NewAPITokenHandler(service.NewAPITokenService(tokenRepo))

	// Token belongs to someone else
	token := &domain.APIToken{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Description: "Test token",
		TokenHash:   "somehash",
		TokenPrefix: "gehalt_abc...",
	}
	tokenRepo.AddToken(token)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/api-tokens/"+token.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(token.ID.String())

	setupUserContext(c, uuid.New())

	err := handler.RevokeAPIToken(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	if token.RevokedAt != nil {
		t.Error("Token of another user must stay active")
	}
}
