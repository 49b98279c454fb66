package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/voxus/internal/services"
	"github.com/thereayou/voxus/internal/testutil"
	"github.com/thereayou/voxus/pkg/auth"
)

// Redis для теста RedisBlacklist; без него тест пропускается
const testRedisAddr = "localhost:6379"

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (b *memBlacklist) Revoke(_ context.Context, token string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = ttl
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[token]
	return ok, nil
}

func newAuthService(t *testing.T) (*services.AuthService, *memBlacklist) {
	t.Helper()
	db := testutil.NewDatabase(t)
	blacklist := &memBlacklist{revoked: map[string]time.Duration{}}
	return services.NewAuthService(db, auth.NewJWTManager("test-secret", time.Hour), blacklist), blacklist
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	req := require.New(t)
	ctx := t.Context()
	svc, _ := newAuthService(t)

	// Given a registered user
	resp, err := svc.Register(ctx, services.RegisterRequest{Username: "alice", Password: "password123"})
	req.NoError(err)
	req.Equal("alice", resp.Username)
	req.WithinDuration(time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

	// When registering the same name again
	_, err = svc.Register(ctx, services.RegisterRequest{Username: "alice", Password: "password456"})

	// Then the name is taken
	req.ErrorIs(err, services.ErrUserExists)

	_, err = svc.Login(ctx, services.LoginRequest{Username: "alice", Password: "nope-nope"})
	req.ErrorIs(err, services.ErrInvalidCredentials)
	_, err = svc.Login(ctx, services.LoginRequest{Username: "bob", Password: "password123"})
	req.ErrorIs(err, services.ErrInvalidCredentials)

	login, err := svc.Login(ctx, services.LoginRequest{Username: "alice", Password: "password123"})
	req.NoError(err)

	username, err := svc.ValidateToken(ctx, login.Token)
	req.NoError(err)
	req.Equal("alice", username)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	req := require.New(t)
	ctx := t.Context()
	svc, blacklist := newAuthService(t)

	resp, err := svc.Register(ctx, services.RegisterRequest{Username: "alice", Password: "password123"})
	req.NoError(err)

	req.NoError(svc.Logout(ctx, resp.Token))
	req.Greater(blacklist.revoked[resp.Token], time.Duration(0))

	_, err = svc.ValidateToken(ctx, resp.Token)
	req.ErrorIs(err, services.ErrTokenRevoked)

	req.ErrorIs(svc.Logout(ctx, "garbage"), services.ErrInvalidCredentials)
	_, err = svc.ValidateToken(ctx, "garbage")
	req.ErrorIs(err, services.ErrInvalidCredentials)
}

func TestRedisBlacklist(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	blacklist := services.NewRedisBlacklist(client)
	token := "test-token-" + time.Now().Format(time.RFC3339Nano)
	t.Cleanup(func() { client.Del(ctx, "blacklist:"+token) })

	revoked, err := blacklist.IsRevoked(ctx, token)
	req.NoError(err)
	req.False(revoked)

	req.NoError(blacklist.Revoke(ctx, token, time.Minute))
	revoked, err = blacklist.IsRevoked(ctx, token)
	req.NoError(err)
	req.True(revoked)

	ttl, err := client.TTL(ctx, "blacklist:"+token).Result()
	req.NoError(err)
	req.Greater(ttl, time.Duration(0))

	// уже истёкший токен не записывается
	req.NoError(blacklist.Revoke(ctx, token+"-expired", 0))
	revoked, err = blacklist.IsRevoked(ctx, token+"-expired")
	req.NoError(err)
	req.False(revoked)
}
