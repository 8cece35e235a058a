package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"Invoice Tracker"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"invoices"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	}

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	}

	Storage struct {
		Backend             string `envconfig:"STORAGE_BACKEND" default:"local"`
		LocalDir            string `envconfig:"STORAGE_LOCAL_DIR" default:"./data/documents"`
		FirebaseBucket      string `envconfig:"FIREBASE_STORAGE_BUCKET"`
		FirebaseCredentials string `envconfig:"FIREBASE_CREDENTIALS_JSON"`
	}

	AI struct {
		GatewayURL string        `envconfig:"AI_GATEWAY_URL" default:"https://ai.gateway.lovable.dev/v1"`
		APIKey     string        `envconfig:"AI_API_KEY"`
		Model      string        `envconfig:"AI_MODEL" default:"google/gemini-2.5-flash"`
		Timeout    time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`
		// Path to the poppler pdftoppm binary used to rasterise the first page of PDFs.
		PDFRenderer string `envconfig:"PDF_RENDERER" default:"pdftoppm"`
	}

	Mail struct {
		ResendAPIKey string `envconfig:"RESEND_API_KEY"`
		From         string `envconfig:"MAIL_FROM" default:"Invoice System <onboarding@resend.dev>"`
	}

	Digest struct {
		MinAge time.Duration `envconfig:"DIGEST_MIN_AGE" default:"24h"`
	}

	TUI struct {
		ReviewerID string `envconfig:"TUI_REVIEWER_ID"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// ExtractionEnabled reports whether an AI gateway key is configured.
func (c *Config) ExtractionEnabled() bool {
	return c.AI.APIKey != ""
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
