// Package config reads the service configuration.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the service configuration parameters.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`
	ClientURL   string `env:"CLIENT_URL"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT"`
	SMTPUser string `env:"EMAIL_USER"`
	SMTPPass string `env:"EMAIL_PASS"`

	CloudinaryName   string `env:"CLOUDINARY_NAME"`
	CloudinaryKey    string `env:"CLOUDINARY_KEY"`
	CloudinarySecret string `env:"CLOUDINARY_SECRET"`

	// CleanupInterval is how often the unverified-account sweep runs.
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL"`
}

// Parse reads configuration from an optional .env file, command-line flags and
// environment variables. Environment values win over flags.
func Parse() (*Config, error) {
	// Best effort, local development convenience.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envJWTSecret := cfg.JWTSecret
	envClientURL := cfg.ClientURL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:5000", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "JWT signing secret")
	flag.StringVar(&cfg.ClientURL, "c", "http://localhost:5173", "allowed client origin")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envClientURL != "" {
		cfg.ClientURL = envClientURL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:5000"
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587"
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	return cfg, nil
}
