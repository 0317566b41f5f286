package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Auth0
	Auth0Domain   string `envconfig:"AUTH0_DOMAIN"`
	Auth0Audience string `envconfig:"AUTH0_AUDIENCE"`
	Auth0ClientID string `envconfig:"AUTH0_CLIENT_ID"`

	// Server
	Port        string   `envconfig:"PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`
	Env         string   `envconfig:"ENV" default:"development"`

	// S3 Storage for uploaded statement PDFs
	S3 S3Config

	// Redis cache for dashboard aggregates
	Redis RedisConfig

	// Gemini model used for PDF extraction and questions
	AI AIConfig
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string `envconfig:"S3_REGION" default:"eu-central-1"`
	Bucket          string `envconfig:"S3_BUCKET" default:"gehalt-documents"`
	AccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `envconfig:"S3_ENDPOINT"` // Optional: for MinIO/LocalStack local dev
	Enabled         bool   `envconfig:"S3_ENABLED" default:"false"`
}

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr       string `envconfig:"REDIS_ADDR"`
	TTLSeconds int    `envconfig:"REDIS_CACHE_TTL_SECONDS" default:"300"`
}

// AIConfig holds the generative model settings
type AIConfig struct {
	APIKey string `envconfig:"GEMINI_API_KEY"`
	Model  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
}

// Enabled reports whether an API key was configured
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.Redis.TTLSeconds < 0 {
		return fmt.Errorf("REDIS_CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}
