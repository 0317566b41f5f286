package service

import (
	"context"
	"strings"
	"testing"

	"github.com/dafibh/gehalt/gehalt-backend/internal/domain"
	"github.com/dafibh/gehalt/gehalt-backend/internal/testutil"
	"github.com/google/uuid"
)

func TestGenerateSecureToken(t *testing.T) {
	token1, err := generateSecureToken()
	if err != nil {
		t.Fatalf("generateSecureToken() error = %v", err)
	}

	// Token should be base64url encoded 32 bytes = 43 characters
	if len(token1) != 43 {
		t.Errorf("Expected token length 43, got %d", len(token1))
	}

	token2, err := generateSecureToken()
	if err != nil {
		t.Fatalf("generateSecureToken() error = %v", err)
	}
	if token1 == token2 {
		t.Error("Two generated tokens should not be equal")
	}
}

func TestHashToken(t *testing.T) {
	token := "gehalt_testtoken123"
	hash := hashToken(token)

	// SHA-256 produces 64 hex characters
	if len(hash) != 64 {
		t.Errorf("Expected hash length 64, got %d", len(hash))
	}
	if hash != hashToken(token) {
		t.Error("Same token should produce same hash")
	}
	if hash == hashToken("gehalt_differenttoken") {
		t.Error("Different tokens should produce different hashes")
	}
}

func TestAPITokenService_Create(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	userID := uuid.New()
	description := "Export script"

	result, err := service.Create(context.Background(), userID, description)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(result.Token, domain.APITokenPrefix) {
		t.Errorf("Token should start with %q, got %s", domain.APITokenPrefix, result.Token[:10])
	}
	if !strings.HasPrefix(result.TokenPrefix, domain.APITokenPrefix) {
		t.Errorf("TokenPrefix should start with %q, got %s", domain.APITokenPrefix, result.TokenPrefix)
	}
	if !strings.HasSuffix(result.TokenPrefix, "...") {
		t.Errorf("TokenPrefix should end with '...', got %s", result.TokenPrefix)
	}
	if result.Description != description {
		t.Errorf("Expected description %s, got %s", description, result.Description)
	}
	if result.Warning == "" {
		t.Error("Warning message should not be empty")
	}

	// Only the hash is stored
	stored := repo.Tokens[result.ID]
	if stored == nil {
		t.Fatal("Expected token to be stored")
	}
	if stored.TokenHash != hashToken(result.Token) {
		t.Error("Stored hash does not match the issued token")
	}
}

func TestAPITokenService_Create_Limit(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)
	userID := uuid.New()

	for i := 0; i < maxTokensPerUser; i++ {
		if _, err := service.Create(context.Background(), userID, "token"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	_, err := service.Create(context.Background(), userID, "one too many")
	if err != domain.ErrTooManyAPITokens {
		t.Errorf("Expected ErrTooManyAPITokens, got %v", err)
	}

	// Other users are not affected
	if _, err := service.Create(context.Background(), uuid.New(), "other"); err != nil {
		t.Errorf("Create() for another user error = %v", err)
	}
}

func TestAPITokenService_ValidateToken_InvalidFormat(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"no prefix", "abc123"},
		{"wrong prefix", "wrong_abc123"},
		{"partial prefix", "geha_abc123"},
		{"unknown token", domain.APITokenPrefix + "doesnotexist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(context.Background(), tt.token)
			if err != domain.ErrAPITokenNotFound {
				t.Errorf("ValidateToken(%s) expected ErrAPITokenNotFound, got %v", tt.token, err)
			}
		})
	}
}

func TestAPITokenService_ValidateToken_ValidFormat(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	userID := uuid.New()
	result, err := service.Create(context.Background(), userID, "Test")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	token, err := service.ValidateToken(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if token.UserID != userID {
		t.Errorf("Expected userID %s, got %s", userID, token.UserID)
	}
}

func TestAPITokenService_GetByUser(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	userID := uuid.New()
	for _, desc := range []string{"Token 1", "Token 2"} {
		if _, err := service.Create(context.Background(), userID, desc); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if _, err := service.Create(context.Background(), uuid.New(), "someone else"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tokens, err := service.GetByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("Expected 2 tokens, got %d", len(tokens))
	}
}

func TestAPITokenService_Revoke(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	userID := uuid.New()
	result, err := service.Create(context.Background(), userID, "Test")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := service.Revoke(context.Background(), userID, result.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	// Revoked tokens no longer authenticate
	if _, err := service.ValidateToken(context.Background(), result.Token); err != domain.ErrAPITokenNotFound {
		t.Errorf("Expected ErrAPITokenNotFound after revoke, got %v", err)
	}
}

func TestAPITokenService_Revoke_NotFound(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	err := service.Revoke(context.Background(), uuid.New(), uuid.New())
	if err != domain.ErrAPITokenNotFound {
		t.Errorf("Expected ErrAPITokenNotFound, got %v", err)
	}
}

func TestAPITokenService_Revoke_OtherUser(t *testing.T) {
	repo := testutil.NewMockAPITokenRepository()
	service := NewAPITokenService(repo)

	result, err := service.Create(context.Background(), uuid.New(), "Test")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err = service.Revoke(context.Background(), uuid.New(), result.ID)
	if err != domain.ErrAPITokenNotFound {
		t.Errorf("Expected ErrAPITokenNotFound, got %v", err)
	}
}
