package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/voxus/internal/chat"
	"github.com/thereayou/voxus/internal/database"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/middleware"
	"github.com/thereayou/voxus/internal/models"
	"github.com/thereayou/voxus/internal/services"
	"github.com/thereayou/voxus/internal/testutil"
	ws "github.com/thereayou/voxus/internal/websocket"
	"github.com/thereayou/voxus/pkg/auth"
)

type memBlacklist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (b *memBlacklist) Revoke(_ context.Context, token string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[token] = true
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revoked[token], nil
}

type testServer struct {
	router *gin.Engine
	db     *database.Database
	engine *chat.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logs.GetLoggerFromLevel(slog.LevelError)

	db := testutil.NewDatabase(t)
	authService := services.NewAuthService(db, auth.NewJWTManager("test-secret", time.Hour), &memBlacklist{revoked: map[string]bool{}})
	engine := chat.NewEngine(db, ws.NewHub(log), log, 50)
	require.NoError(t, engine.Start(t.Context()))

	authH := NewAuthHandler(authService, log)
	r := gin.New()
	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)
	r.POST("/auth/logout", authH.Logout)

	api := r.Group("/api", middleware.AuthMiddleware(authService, log))
	users := NewUserHandler(engine)
	api.GET("/users", users.GetUsers)
	api.GET("/users/me", users.GetMe)
	api.GET("/users/:username", users.GetUser)

	rooms := NewRoomHandler(engine)
	api.GET("/rooms", rooms.GetRooms)
	api.POST("/rooms", rooms.CreateRoom)
	api.GET("/rooms/:id", rooms.GetRoom)
	api.GET("/rooms/:id/members", rooms.GetRoomMembers)
	api.POST("/rooms/:id/join", rooms.JoinRoom)
	api.POST("/rooms/:id/leave", rooms.LeaveRoom)

	messages := NewHTTPMessageHandler(engine)
	api.GET("/rooms/:id/messages", messages.GetRoomMessages)
	api.POST("/rooms/:id/messages", messages.SendMessage)

	return &testServer{router: r, db: db, engine: engine}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", "", services.RegisterRequest{Username: username, Password: "password123"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp services.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAuth_RegisterLoginLogout(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	token := s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/auth/register", "", services.RegisterRequest{Username: "alice", Password: "password123"})
	req.Equal(http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "al", "password": "short"})
	req.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", services.LoginRequest{Username: "alice", Password: "wrong-password"})
	req.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", services.LoginRequest{Username: "alice", Password: "password123"})
	req.Equal(http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/rooms", token, nil)
	req.Equal(http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	req.Equal(http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/rooms", token, nil)
	req.Equal(http.StatusUnauthorized, rec.Code)
}

func TestUsers_OfflineByDefault(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	token := s.register(t, "alice")
	s.register(t, "bob")

	rec := s.do(t, http.MethodGet, "/api/users", token, nil)
	req.Equal(http.StatusOK, rec.Code)

	var body struct {
		Users []events.UserEntry `json:"users"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Len(body.Users, 2)
	for _, u := range body.Users {
		req.False(u.IsOnline)
		req.Nil(u.ConnectionID)
	}
}

func TestRooms_VisibilityAndHistory(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	ctx := t.Context()
	token := s.register(t, "alice")

	secret := &models.Room{Name: "secret", IsPrivate: true, CreatedBy: "bob", Members: []string{"bob"}, CreatedAt: time.Now()}
	req.NoError(s.db.CreateRoom(ctx, secret))
	for _, body := range []string{"one", "two", "three"} {
		req.NoError(s.db.SaveMessage(ctx, &models.Message{RoomID: models.GlobalRoomID, Sender: "alice", Body: body, CreatedAt: time.Now()}))
	}

	rec := s.do(t, http.MethodGet, "/api/rooms", token, nil)
	req.Equal(http.StatusOK, rec.Code)
	var rooms struct {
		Rooms []events.RoomView `json:"rooms"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &rooms))
	req.Len(rooms.Rooms, 1)
	req.Equal(models.GlobalRoomID, rooms.Rooms[0].ID)

	rec = s.do(t, http.MethodGet, "/api/rooms/global/messages?limit=2", token, nil)
	req.Equal(http.StatusOK, rec.Code)
	var page struct {
		Messages []events.MessageView `json:"messages"`
		HasMore  bool                 `json:"has_more"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &page))
	req.Len(page.Messages, 2)
	req.Equal("two", page.Messages[0].Body)
	req.Equal("three", page.Messages[1].Body)
	req.True(page.HasMore)

	rec = s.do(t, http.MethodGet, "/api/rooms/"+secret.ID+"/messages", token, nil)
	req.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/rooms/missing/messages", token, nil)
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestUsers_MeAndByName(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	token := s.register(t, "alice")
	s.register(t, "bob")

	rec := s.do(t, http.MethodGet, "/api/users/me", token, nil)
	req.Equal(http.StatusOK, rec.Code)
	var me events.UserEntry
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &me))
	req.Equal("alice", me.Username)
	req.False(me.IsOnline)

	rec = s.do(t, http.MethodGet, "/api/users/bob", token, nil)
	req.Equal(http.StatusOK, rec.Code)
	var bob events.UserEntry
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &bob))
	req.Equal("bob", bob.Username)

	rec = s.do(t, http.MethodGet, "/api/users/nobody", token, nil)
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestRooms_CreateJoinAndMembers(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")

	// Given alice creates a public and a private room
	rec := s.do(t, http.MethodPost, "/api/rooms", alice, gin.H{"name": "general"})
	req.Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var general events.RoomView
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &general))
	req.Equal("general", general.Name)
	req.Equal("alice", general.CreatedBy)

	rec = s.do(t, http.MethodPost, "/api/rooms", alice, gin.H{"name": "secret", "isPrivate": true})
	req.Equal(http.StatusCreated, rec.Code)
	var secret events.RoomView
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &secret))
	req.True(secret.IsPrivate)

	rec = s.do(t, http.MethodPost, "/api/rooms", alice, gin.H{"name": "x"})
	req.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/rooms", alice, gin.H{})
	req.Equal(http.StatusBadRequest, rec.Code)

	// When bob joins the public room
	rec = s.do(t, http.MethodPost, "/api/rooms/"+general.ID+"/join", bob, nil)
	req.Equal(http.StatusOK, rec.Code)

	// Then bob is listed as an offline member
	rec = s.do(t, http.MethodGet, "/api/rooms/"+general.ID+"/members", alice, nil)
	req.Equal(http.StatusOK, rec.Code)
	var members struct {
		Members []events.UserEntry `json:"members"`
		Count   int                `json:"count"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &members))
	req.Equal(1, members.Count)
	req.Equal("bob", members.Members[0].Username)
	req.False(members.Members[0].IsOnline)

	// And the private room stays closed to bob
	rec = s.do(t, http.MethodGet, "/api/rooms/"+secret.ID, bob, nil)
	req.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/rooms/"+secret.ID+"/join", bob, nil)
	req.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/rooms/"+secret.ID, alice, nil)
	req.Equal(http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/rooms/"+general.ID+"/leave", bob, nil)
	req.Equal(http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/rooms/missing/leave", bob, nil)
	req.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/rooms/missing", bob, nil)
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestMessages_SendOverHTTP(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	ctx := t.Context()
	token := s.register(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/rooms/global/messages", token, gin.H{"content": "  hello  "})
	req.Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var sent events.MessageView
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &sent))
	req.Equal("hello", sent.Body)
	req.Equal("alice", sent.Sender)

	history, err := s.db.GetRoomMessages(ctx, models.GlobalRoomID, 10)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(sent.ID, history[0].ID)

	rec = s.do(t, http.MethodPost, "/api/rooms/global/messages", token, gin.H{"content": "   "})
	req.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/rooms/global/messages", token, gin.H{})
	req.Equal(http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/rooms/missing/messages", token, gin.H{"content": "hi"})
	req.Equal(http.StatusNotFound, rec.Code)
}

func TestCheckOrigin(t *testing.T) {
	req := require.New(t)
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://chat.example.com")

	req.True(checkOrigin("")(r))
	req.True(checkOrigin("https://chat.example.com")(r))
	req.False(checkOrigin("https://other.example.com")(r))
}
