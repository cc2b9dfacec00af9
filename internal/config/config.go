// Package config содержит логику чтения конфигурации коммерческого сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации коммерческого сервиса.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	SecretKey          string `env:"SECRET_KEY"`
	TokenExpireMinutes int    `env:"TOKEN_EXPIRE_MINUTES"`
	WhatsAppAddress    string `env:"WHATSAPP_ADDRESS"`
	WhatsAppToken      string `env:"WHATSAPP_TOKEN"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSecretKey := cfg.SecretKey
	envTokenExpire := cfg.TokenExpireMinutes
	envWhatsAppAddress := cfg.WhatsAppAddress
	envWhatsAppToken := cfg.WhatsAppToken

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.SecretKey, "s", "", "secret key for signing access tokens")
	flag.IntVar(&cfg.TokenExpireMinutes, "t", 30, "access token lifetime in minutes")
	flag.StringVar(&cfg.WhatsAppAddress, "w", "", "WhatsApp gateway address")
	flag.StringVar(&cfg.WhatsAppToken, "k", "", "WhatsApp gateway API token")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSecretKey != "" {
		cfg.SecretKey = envSecretKey
	}
	if envTokenExpire != 0 {
		cfg.TokenExpireMinutes = envTokenExpire
	}
	if envWhatsAppAddress != "" {
		cfg.WhatsAppAddress = envWhatsAppAddress
	}
	if envWhatsAppToken != "" {
		cfg.WhatsAppToken = envWhatsAppToken
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.TokenExpireMinutes <= 0 {
		cfg.TokenExpireMinutes = 30
	}

	return cfg, nil
}
