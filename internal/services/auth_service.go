package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/thereayou/voxus/internal/database"
	"github.com/thereayou/voxus/internal/models"
	"github.com/thereayou/voxus/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already taken")
	ErrTokenRevoked       = errors.New("token is blacklisted")
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenBlacklist отозванные токены
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// RedisBlacklist хранит отозванные токены в Redis до их истечения
type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, "blacklist:"+token, 1, ttl).Err()
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.client.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// AuthService внешний по отношению к ядру чата сервис учётных данных
type AuthService struct {
	users      UserStore
	jwtManager *auth.JWTManager
	blacklist  TokenBlacklist
}

func NewAuthService(users UserStore, jwtManager *auth.JWTManager, blacklist TokenBlacklist) *AuthService {
	return &AuthService{users: users, jwtManager: jwtManager, blacklist: blacklist}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if _, err := s.users.FindUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("cannot hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user.Username)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.FindUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user.Username)
}

// Logout ставит токен в черный список до истечения
func (s *AuthService) Logout(ctx context.Context, token string) error {
	exp, err := s.jwtManager.Expiry(token)
	if err != nil {
		return ErrInvalidCredentials
	}
	return s.blacklist.Revoke(ctx, token, time.Until(exp))
}

// ValidateToken возвращает имя пользователя из действующего токена
func (s *AuthService) ValidateToken(ctx context.Context, token string) (string, error) {
	revoked, err := s.blacklist.IsRevoked(ctx, token)
	if err != nil {
		return "", fmt.Errorf("blacklist check: %w", err)
	}
	if revoked {
		return "", ErrTokenRevoked
	}

	claims, err := s.jwtManager.Verify(token)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	return claims.Username, nil
}

func (s *AuthService) issue(username string) (*AuthResponse, error) {
	token, exp, err := s.jwtManager.Generate(username)
	if err != nil {
		return nil, fmt.Errorf("could not generate token: %w", err)
	}
	return &AuthResponse{Username: username, Token: token, ExpiresAt: exp}, nil
}
