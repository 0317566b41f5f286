package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// MockAPITokenValidator implements APITokenValidator for testing
type MockAPITokenValidator struct {
	token *domain.APIToken
	err   error
}

func (m *MockAPITokenValidator) ValidateToken(ctx context.Context, token string) (*domain.APIToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func TestAPITokenAuth_Success(t *testing.T) {
	tokenID := uuid.New()
	userID := uuid.New()
	mw := NewAPITokenAuthMiddleware(&MockAPITokenValidator{
		token: &domain.APIToken{ID: tokenID, UserID: userID},
	})

	called := false
	rec := runMiddleware(t, mw.Authenticate(), "Bearer gehalt_testtoken123", func(c echo.Context) error {
		called = true
		assert.Equal(t, userID, GetUserID(c))
		assert.Equal(t, tokenID, GetAPITokenID(c))
		assert.True(t, IsAPITokenAuth(c))
		return c.String(http.StatusOK, "OK")
	})

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPITokenAuth_MissingHeader(t *testing.T) {
	mw := NewAPITokenAuthMiddleware(&MockAPITokenValidator{})

	rec := runMiddleware(t, mw.Authenticate(), "", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPITokenAuth_InvalidFormat(t *testing.T) {
	mw := NewAPITokenAuthMiddleware(&MockAPITokenValidator{})

	rec := runMiddleware(t, mw.Authenticate(), "gehalt_testtoken123", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPITokenAuth_WrongPrefix(t *testing.T) {
	mw := NewAPITokenAuthMiddleware(&MockAPITokenValidator{
		token: &domain.APIToken{ID: uuid.New(), UserID: uuid.New()},
	})

	rec := runMiddleware(t, mw.Authenticate(), "Bearer fort_testtoken123", func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token format")
}

func TestAPITokenAuth_InvalidToken(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		detail string
	}{
		{"revoked", domain.ErrAPITokenNotFound, "Invalid or expired API token"},
		{"lookup failure", errors.New("db down"), "Token validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAPITokenAuthMiddleware(&MockAPITokenValidator{err: tt.err})

			rec := runMiddleware(t, mw.Authenticate(), "Bearer gehalt_revoked", func(c echo.Context) error {
				t.Error("Handler should not be called")
				return nil
			})

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.detail)
		})
	}
}
