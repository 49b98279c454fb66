package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/thereayou/voxus/internal/chat"
	"github.com/thereayou/voxus/internal/config"
	"github.com/thereayou/voxus/internal/database"
	"github.com/thereayou/voxus/internal/handlers"
	"github.com/thereayou/voxus/internal/middleware"
	"github.com/thereayou/voxus/internal/services"
	"github.com/thereayou/voxus/internal/websocket"
	"github.com/thereayou/voxus/pkg/auth"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Engine     *chat.Engine

	cfg *config.Config
	log *slog.Logger
}

// NewServer поднимает зависимости и маршруты. ctx ограничивает жизнь WebSocket-сессий.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("redis connect failed: %w", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(dbConn, jwtMgr, services.NewRedisBlacklist(rdb))

	hub := websocket.NewHub(log)
	engine := chat.NewEngine(dbConn, hub, log, cfg.HistoryLimit)
	if err := engine.Start(ctx); err != nil {
		_ = rdb.Close()
		_ = dbConn.Close()
		return nil, fmt.Errorf("chat engine failed to start: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	APIEndpoints(router, Handlers{
		Auth:     handlers.NewAuthHandler(authService, log),
		Users:    handlers.NewUserHandler(engine),
		Rooms:    handlers.NewRoomHandler(engine),
		Messages: handlers.NewHTTPMessageHandler(engine),
		WS:       handlers.NewWebSocketHandler(ctx, hub, engine, cfg.AllowedOrigin, cfg.SendBufferSize, log),
		HTTPAuth: middleware.AuthMiddleware(authService, log),
		WSAuth:   middleware.WSAuthMiddleware(authService, log),
	})

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Engine:     engine,
		cfg:        cfg,
		log:        log,
	}, nil
}

// Run обслуживает HTTP до отмены ctx, затем закрывает соединения и хранилища
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.Router,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", "port", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server run error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down gracefully...")
	case err := <-errChan:
		s.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// апгрейженные соединения Shutdown не трогает
	s.Hub.Stop()
	s.drain(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("HTTP shutdown incomplete", "error", err)
	}
	s.close()

	s.log.Info("Server stopped cleanly")
	return nil
}

// drain ждёт, пока disconnect каждой сессии дойдёт до хранилища
func (s *Server) drain(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for s.Hub.Count() > 0 {
		select {
		case <-ctx.Done():
			s.log.Warn("Connections still open at shutdown", "count", s.Hub.Count())
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) close() {
	if err := s.Redis.Close(); err != nil {
		s.log.Warn("Closing Redis failed", "error", err)
	}
	if err := s.DB.Close(); err != nil {
		s.log.Warn("Closing Postgres failed", "error", err)
	}
}
