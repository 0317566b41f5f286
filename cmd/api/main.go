package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dafibh/gehalt/gehalt-backend/internal/ai"
	"github.com/dafibh/gehalt/gehalt-backend/internal/config"
	"github.com/dafibh/gehalt/gehalt-backend/internal/handler"
	"github.com/dafibh/gehalt/gehalt-backend/internal/middleware"
	"github.com/dafibh/gehalt/gehalt-backend/internal/repository/cache"
	"github.com/dafibh/gehalt/gehalt-backend/internal/repository/postgres"
	"github.com/dafibh/gehalt/gehalt-backend/internal/repository/storage"
	"github.com/dafibh/gehalt/gehalt-backend/internal/service"
	"github.com/dafibh/gehalt/gehalt-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Apply pending schema migrations before serving
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	statementRepo := postgres.NewStatementRepository(pool)
	apiTokenRepo := postgres.NewAPITokenRepository(pool)

	// Optional document storage
	var documents storage.DocumentRepository
	if cfg.S3.Enabled {
		s3Repo, err := storage.NewS3DocumentRepository(ctx, cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 document storage")
		}
		documents = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Document storage enabled")
	} else {
		log.Warn().Msg("S3 disabled, statements are stored without their source PDF")
	}

	// Optional dashboard cache
	var dashboardCache *cache.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, dashboard cache disabled")
		} else {
			defer redisClient.Close()
			dashboardCache = cache.NewCache(redisClient, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Dashboard cache enabled")
		}
	}

	// Optional language model
	var aiClient service.AIClient
	if cfg.AI.Enabled() {
		gemini, err := ai.NewGeminiClient(ctx, cfg.AI)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Gemini client")
		}
		aiClient = gemini
		log.Info().Str("model", cfg.AI.Model).Msg("AI extraction enabled")
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, extraction and questions are disabled")
	}

	// Real-time event hub
	hub := websocket.NewHub()

	// Initialize services
	authService := service.NewAuthService(userRepo)
	apiTokenService := service.NewAPITokenService(apiTokenRepo)

	statementService := service.NewStatementService(statementRepo)
	statementService.SetEventPublisher(hub)
	if documents != nil {
		statementService.SetDocumentStorage(documents)
	}

	importExportService := service.NewImportExportService(statementRepo, statementService)
	importExportService.SetEventPublisher(hub)

	dashboardService := service.NewDashboardService(statementRepo)

	if dashboardCache != nil {
		statementService.SetCache(dashboardCache)
		importExportService.SetCache(dashboardCache)
		dashboardService.SetCache(dashboardCache)
	}

	extractionService := service.NewExtractionService(aiClient, documents, statementService)
	askService := service.NewAskService(aiClient, statementRepo)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	apiTokenAuth := middleware.NewAPITokenAuthMiddleware(apiTokenService)
	dualAuth := middleware.NewDualAuthMiddleware(authMiddleware, apiTokenAuth)

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// WebSocket authentication uses the same Auth0 tenant
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket JWT validator")
	}
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Profile:      handler.NewProfileHandler(authService),
		APIToken:     handler.NewAPITokenHandler(apiTokenService),
		Statement:    handler.NewStatementHandler(statementService),
		ImportExport: handler.NewImportExportHandler(importExportService),
		Extract:      handler.NewExtractHandler(extractionService),
		Ask:          handler.NewAskHandler(askService),
		Dashboard:    handler.NewDashboardHandler(dashboardService),
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = !cfg.IsProduction()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket endpoint authenticates through the token query param
	e.GET("/ws", wsHandler.HandleWS)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, dualAuth, rateLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
