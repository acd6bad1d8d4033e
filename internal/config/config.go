// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultMaxUploadSize caps a single uploaded file at 10 MiB.
const DefaultMaxUploadSize = 10 << 20

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"SITEAPI_DB_PATH" envDefault:"./data/siteapi.db"`
	ServerHost string `env:"SITEAPI_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SITEAPI_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"SITEAPI_ENV" envDefault:"development"`
	LogLevel   string `env:"SITEAPI_LOG_LEVEL" envDefault:"info"`

	// Media host configuration. BaseURL is overridable for tests; the
	// cloud name, key and secret come from the hosting account.
	MediaBaseURL   string `env:"SITEAPI_MEDIA_BASE_URL" envDefault:"https://api.cloudinary.com"`
	MediaCloudName string `env:"SITEAPI_MEDIA_CLOUD_NAME"`
	MediaAPIKey    string `env:"SITEAPI_MEDIA_API_KEY"`
	MediaAPISecret string `env:"SITEAPI_MEDIA_API_SECRET"`
	MediaFolder    string `env:"SITEAPI_MEDIA_FOLDER" envDefault:"mudbeaver"`

	// Upload limits
	MaxUploadSize int64 `env:"SITEAPI_MAX_UPLOAD_SIZE" envDefault:"10485760"` // bytes, per file

	// hCaptcha configuration for the public intake forms
	HCaptchaSecretKey string `env:"SITEAPI_HCAPTCHA_SECRET_KEY"`

	// Rate limiting for unauthenticated endpoints
	PublicRPS   float64 `env:"SITEAPI_PUBLIC_RPS" envDefault:"10"`
	PublicBurst int     `env:"SITEAPI_PUBLIC_BURST" envDefault:"20"`

	// Seeding configuration
	DoSeed bool `env:"SITEAPI_DO_SEED" envDefault:"true"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MediaConfigured returns true if the remote media host credentials are set.
func (c Config) MediaConfigured() bool {
	return c.MediaCloudName != "" && c.MediaAPIKey != "" && c.MediaAPISecret != ""
}

// CaptchaEnabled returns true if hCaptcha verification is configured.
func (c Config) CaptchaEnabled() bool {
	return c.HCaptchaSecretKey != ""
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("SITEAPI_MAX_UPLOAD_SIZE must be positive, got %d", cfg.MaxUploadSize)
	}
	if cfg.PublicRPS <= 0 {
		return nil, fmt.Errorf("SITEAPI_PUBLIC_RPS must be positive, got %v", cfg.PublicRPS)
	}

	return cfg, nil
}
