// Package config содержит логику чтения конфигурации сервиса рефиллиа.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса рефиллиа.
// Все величины начислений вынесены в конфигурацию: в разных ревизиях
// исходного приложения они отличались.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	AuthSecret  string `env:"AUTH_SECRET"`
	CORSOrigin  string `env:"CORS_ORIGIN"`

	PointsStationSubmitted int `env:"POINTS_STATION_SUBMITTED" envDefault:"50"`
	PointsStationVerified  int `env:"POINTS_STATION_VERIFIED" envDefault:"25"`
	PointsFeedback         int `env:"POINTS_FEEDBACK" envDefault:"10"`
	PointsRefillConfirmed  int `env:"POINTS_REFILL_CONFIRMED" envDefault:"10"`
	PointsRefillDeclined   int `env:"POINTS_REFILL_DECLINED" envDefault:"1"`

	RefillConfirmWindow time.Duration `env:"REFILL_CONFIRM_WINDOW" envDefault:"30m"`
	VerifiedListLimit   int           `env:"VERIFIED_LIST_LIMIT" envDefault:"100"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envCORSOrigin := cfg.CORSOrigin

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&cfg.CORSOrigin, "o", "", "allowed CORS origin for the web frontend")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envCORSOrigin != "" {
		cfg.CORSOrigin = envCORSOrigin
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.RefillConfirmWindow <= 0 {
		return nil, fmt.Errorf("refill confirm window must be positive, got %s", cfg.RefillConfirmWindow)
	}
	if cfg.VerifiedListLimit <= 0 {
		return nil, fmt.Errorf("verified list limit must be positive, got %d", cfg.VerifiedListLimit)
	}

	return cfg, nil
}
