package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/voxus")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	setRequired(t)

	cfg, err := Load(logs.GetLoggerFromLevel(slog.LevelError))

	req.NoError(err)
	req.Equal("8080", cfg.Port)
	req.Equal(24*time.Hour, cfg.TokenTTL)
	req.Equal(50, cfg.HistoryLimit)
	req.Equal(256, cfg.SendBufferSize)
	req.Empty(cfg.AllowedOrigin)
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("HISTORY_LIMIT", "20")

	cfg, err := Load(logs.GetLoggerFromLevel(slog.LevelError))

	req.NoError(err)
	req.Equal("9000", cfg.Port)
	req.Equal(time.Hour, cfg.TokenTTL)
	req.Equal(20, cfg.HistoryLimit)
}

func TestLoad_MissingRequired(t *testing.T) {
	req := require.New(t)
	t.Setenv("DATABASE_URL", "")
	req.NoError(os.Unsetenv("DATABASE_URL"))
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load(logs.GetLoggerFromLevel(slog.LevelError))

	req.Error(err)
}

func TestLoad_RejectsNonPositiveHistory(t *testing.T) {
	req := require.New(t)
	setRequired(t)
	t.Setenv("HISTORY_LIMIT", "0")

	_, err := Load(logs.GetLoggerFromLevel(slog.LevelError))

	req.ErrorContains(err, "HISTORY_LIMIT")
}
