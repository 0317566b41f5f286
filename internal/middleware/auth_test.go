package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenValidator accepts exactly one token
type fakeTokenValidator struct {
	token  string
	claims *validator.ValidatedClaims
}

func (f *fakeTokenValidator) ValidateToken(ctx context.Context, token string) (interface{}, error) {
	if token != f.token {
		return nil, errors.New("signature mismatch")
	}
	return f.claims, nil
}

// MockUserProvider implements UserProvider for testing
type MockUserProvider struct {
	userID uuid.UUID
	err    error
}

func (m *MockUserProvider) GetUserIDByAuth0ID(auth0ID string) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	return m.userID, nil
}

func newTestAuthMiddleware(provider UserProvider) *AuthMiddleware {
	return NewAuthMiddlewareWithValidator(&fakeTokenValidator{
		token: "valid.jwt.token",
		claims: &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: "auth0|test"},
			CustomClaims:     &CustomClaims{Email: "test@example.com"},
		},
	}, provider)
}

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, header string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/statements", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, mw(handler)(c))
	return rec
}

func TestAuthMiddleware_InjectsUserID(t *testing.T) {
	userID := uuid.New()
	mw := newTestAuthMiddleware(&MockUserProvider{userID: userID})

	called := false
	rec := runMiddleware(t, mw.Authenticate(), "Bearer valid.jwt.token", func(c echo.Context) error {
		called = true
		assert.Equal(t, userID, GetUserID(c))
		assert.Equal(t, "auth0|test", GetAuth0ID(c))
		assert.Equal(t, "test@example.com", GetCustomClaims(c).Email)
		assert.False(t, IsAPITokenAuth(c))
		return c.String(http.StatusOK, "ok")
	})

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingAuthorizationHeader(t *testing.T) {
	mw := newTestAuthMiddleware(&MockUserProvider{userID: uuid.New()})

	rec := runMiddleware(t, mw.Authenticate(), "", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing authorization header")
}

func TestAuthMiddleware_InvalidAuthorizationHeaderFormat(t *testing.T) {
	mw := newTestAuthMiddleware(&MockUserProvider{userID: uuid.New()})

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "invalid-token"},
		{"wrong prefix", "Basic token123"},
		{"empty token", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := runMiddleware(t, mw.Authenticate(), tt.header, func(c echo.Context) error {
				t.Error("Handler should not be called")
				return nil
			})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	mw := newTestAuthMiddleware(&MockUserProvider{userID: uuid.New()})

	rec := runMiddleware(t, mw.Authenticate(), "Bearer forged.jwt.token", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
}

func TestAuthMiddleware_UnprovisionedUser(t *testing.T) {
	mw := newTestAuthMiddleware(&MockUserProvider{err: domain.ErrUserNotFound})

	t.Run("Authenticate rejects", func(t *testing.T) {
		rec := runMiddleware(t, mw.Authenticate(), "Bearer valid.jwt.token", func(c echo.Context) error {
			t.Error("Handler should not be called")
			return nil
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("AuthenticateIdentity passes without user", func(t *testing.T) {
		called := false
		rec := runMiddleware(t, mw.AuthenticateIdentity(), "Bearer valid.jwt.token", func(c echo.Context) error {
			called = true
			assert.Equal(t, uuid.Nil, GetUserID(c))
			assert.Equal(t, "auth0|test", GetAuth0ID(c))
			return c.String(http.StatusOK, "ok")
		})
		assert.True(t, called)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthMiddleware_UserLookupError(t *testing.T) {
	mw := newTestAuthMiddleware(&MockUserProvider{err: errors.New("connection refused")})

	rec := runMiddleware(t, mw.AuthenticateIdentity(), "Bearer valid.jwt.token", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAuth0ID(t *testing.T) {
	e := echo.New()

	t.Run("returns auth0 id when present", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		ctx := context.WithValue(c.Request().Context(), Auth0IDKey, "auth0|12345")
		c.SetRequest(c.Request().WithContext(ctx))

		assert.Equal(t, "auth0|12345", GetAuth0ID(c))
	})

	t.Run("returns empty string when not present", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.Equal(t, "", GetAuth0ID(c))
	})
}

func TestGetUserID_NotPresent(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, uuid.Nil, GetUserID(c))
}

func TestGetCustomClaims_NotPresent(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, GetClaims(c))
	assert.Nil(t, GetCustomClaims(c))
}

func TestCustomClaims_Validate(t *testing.T) {
	claims := CustomClaims{Email: "test@example.com"}
	assert.NoError(t, claims.Validate(context.Background()))
}
