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

func newProfileFixture() (*ProfileHandler, *testutil.MockUserRepository, *domain.User) {
	userRepo := testutil.NewMockUserRepository()
	name := "Test User"
	user := &domain.User{
		ID:      uuid.New(),
		Auth0ID: "auth0|profile123",
		Email:   "test@example.com",
		Name:    &name,
	}
	userRepo.AddUser(user)
	return NewProfileHandler(service.NewAuthService(userRepo)), userRepo, user
}

func TestGetProfile_Success(t *testing.T) {
	e := echo.New()
	handler, _, user := newProfileFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContextWithUser(c, user.Auth0ID, user.Email, *user.Name, "", user.ID)

	err := handler.GetProfile(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if response.Email != "test@example.com" {
		t.Errorf("Expected email 'test@example.com', got %s", response.Email)
	}
	if response.Name == nil || *response.Name != "Test User" {
		t.Errorf("Expected name 'Test User', got %v", response.Name)
	}
}

func TestGetProfile_MissingAuth0ID(t *testing.T) {
	e := echo.New()
	handler, _, _ := newProfileFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.GetProfile(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	e := echo.New()
	handler, userRepo, user := newProfileFixture()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"name": "  Renamed User "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContextWithUser(c, user.Auth0ID, user.Email, *user.Name, "", user.ID)

	err := handler.UpdateProfile(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	stored, _ := userRepo.GetByAuth0ID(user.Auth0ID)
	if stored.Name == nil || *stored.Name != "Renamed User" {
		t.Errorf("Expected trimmed name 'Renamed User', got %v", stored.Name)
	}
}

func TestUpdateProfile_EmptyName(t *testing.T) {
	e := echo.New()
	handler, _, user := newProfileFixture()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"name": ""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContextWithUser(c, user.Auth0ID, user.Email, *user.Name, "", user.ID)

	err := handler.UpdateProfile(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	details := decodeProblem(t, rec)
	if len(details.Errors) != 1 || details.Errors[0].Field != "name" {
		t.Errorf("Expected a single error for field 'name', got %+v", details.Errors)
	}
}

func TestUpdateProfile_WhitespaceOnlyName(t *testing.T) {
	e := echo.New()
	handler, _, user := newProfileFixture()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"name": "   "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContextWithUser(c, user.Auth0ID, user.Email, *user.Name, "", user.ID)

	err := handler.UpdateProfile(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestUpdateProfile_NameTooLong(t *testing.T) {
	e := echo.New()
	handler, _, user := newProfileFixture()

	body := `{"name": "` + strings.Repeat("a", 256) + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContextWithUser(c, user.Auth0ID, user.Email, *user.Name, "", user.ID)

	err := handler.UpdateProfile(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestUpdateProfile_UserNotFound(t *testing.T) {
	e := echo.New()
	handler, _, _ := newProfileFixture()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile", strings.NewReader(`{"name": "Ghost"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	setupAuthContext(c, "auth0|ghost", "ghost@example.com", "Ghost", "")

	err := handler.UpdateProfile(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
