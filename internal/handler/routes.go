package handler

import (
	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups every HTTP handler served under /api/v1
type Handlers struct {
	Auth         *AuthHandler
	Profile      *ProfileHandler
	APIToken     *APITokenHandler
	Statement    *StatementHandler
	ImportExport *ImportExportHandler
	Extract      *ExtractHandler
	Ask          *AskHandler
	Dashboard    *DashboardHandler
}

// RegisterRoutes sets up all API routes
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, dualAuth *middleware.DualAuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// API version 1
	api := e.Group("/api/v1")

	// Auth routes accept tokens of users that are not provisioned yet
	auth := api.Group("/auth")
	auth.Use(authMiddleware.AuthenticateIdentity())
	auth.POST("/callback", h.Auth.Callback)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/logout", h.Auth.Logout)

	// Profile routes (protected)
	profile := api.Group("/profile")
	profile.Use(dualAuth.JWTOnly())
	profile.GET("", h.Profile.GetProfile)
	profile.PUT("", h.Profile.UpdateProfile)

	// API token management routes (JWT only)
	apiTokens := api.Group("/api-tokens")
	apiTokens.Use(dualAuth.JWTOnly())
	apiTokens.POST("", h.APIToken.CreateAPIToken)
	apiTokens.GET("", h.APIToken.GetAPITokens)
	apiTokens.DELETE("/:id", h.APIToken.RevokeAPIToken)

	// Everything below accepts JWT or API token
	protected := api.Group("")
	protected.Use(dualAuth.Authenticate())
	protected.Use(middleware.RateLimitMiddleware(rateLimiter))

	// Statement routes. Static paths are registered before /:id.
	statements := protected.Group("/statements")
	statements.POST("", h.Statement.CreateStatement)
	statements.GET("", h.Statement.ListStatements)
	statements.DELETE("", h.Statement.DeleteAllStatements)
	statements.POST("/validate", h.Statement.ValidateStatement)
	statements.POST("/import", h.ImportExport.Import)
	statements.GET("/export", h.ImportExport.Export)
	statements.POST("/extract", h.Extract.Extract)
	statements.GET("/:id", h.Statement.GetStatement)
	statements.PATCH("/:id", h.Statement.UpdateStatement)
	statements.PUT("/:id", h.Statement.ReplaceStatement)
	statements.DELETE("/:id", h.Statement.DeleteStatement)
	statements.GET("/:id/document", h.Statement.GetDocument)

	// Question answering
	protected.POST("/ask", h.Ask.Ask)

	// Dashboard routes
	dashboard := protected.Group("/dashboard")
	dashboard.GET("/summary", h.Dashboard.GetSummary)
	dashboard.GET("/years", h.Dashboard.GetYears)
}
