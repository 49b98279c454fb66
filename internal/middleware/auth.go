package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/voxus/internal/services"
	"github.com/thereayou/voxus/pkg/auth"
)

const UsernameKey = "username"

// TokenValidator проверяет токен и возвращает имя пользователя
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// AuthMiddleware проверяет JWT токен из Authorization header
func AuthMiddleware(validator TokenValidator, log *slog.Logger) gin.HandlerFunc {
	return authenticate(validator, log, auth.ExtractTokenFromHeader)
}

// WSAuthMiddleware специальный middleware для WebSocket: браузер не может задать
// заголовок при апгрейде, поэтому токен также берётся из query
func WSAuthMiddleware(validator TokenValidator, log *slog.Logger) gin.HandlerFunc {
	return authenticate(validator, log, auth.ExtractToken)
}

func authenticate(validator TokenValidator, log *slog.Logger, extract func(*http.Request) (string, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extract(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		username, err := validator.ValidateToken(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrTokenRevoked):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token is blacklisted"})
			return
		case errors.Is(err, services.ErrInvalidCredentials):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		default:
			log.Error("Token validation failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "cannot validate token"})
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// Username имя пользователя, установленное middleware
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
