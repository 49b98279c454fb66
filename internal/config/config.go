package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config конфигурация сервера, читается из окружения
type Config struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL       string        `envconfig:"REDIS_URL" required:"true"`
	JWTSecret      string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"INFO"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"50"`
	SendBufferSize int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	AllowedOrigin  string        `envconfig:"ALLOWED_ORIGIN"`
}

// Load загружает .env.local / .env (если есть) и разбирает окружение
func Load(log *slog.Logger) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Info(".env not found, using environment variables")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if cfg.HistoryLimit <= 0 {
		return nil, fmt.Errorf("config error: HISTORY_LIMIT must be positive, got %d", cfg.HistoryLimit)
	}
	if cfg.SendBufferSize <= 0 {
		return nil, fmt.Errorf("config error: SEND_BUFFER_SIZE must be positive, got %d", cfg.SendBufferSize)
	}
	return &cfg, nil
}
