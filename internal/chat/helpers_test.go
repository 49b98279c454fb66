package chat_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/voxus/internal/chat"
	"github.com/thereayou/voxus/internal/database"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/services"
	"github.com/thereayou/voxus/internal/testutil"
	"github.com/thereayou/voxus/internal/websocket"
)

// conn соединение, которое запоминает все полученные кадры
type conn struct {
	id     string
	mu     sync.Mutex
	frames []events.Envelope
	closed bool
	// reject кадры этого типа не принимаются
	reject string
}

var errRejected = errors.New("frame rejected")

func (c *conn) ID() string { return c.id }

func (c *conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var env events.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}
	if env.Type == c.reject {
		return errRejected
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *conn) of(typ string) []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Envelope
	for _, f := range c.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

func (c *conn) count(typ string) int {
	return len(c.of(typ))
}

// last раскладывает последний кадр типа typ в v
func (c *conn) last(t *testing.T, typ string, v any) {
	t.Helper()
	frames := c.of(typ)
	require.NotEmpty(t, frames, "no %s frame on %s", typ, c.id)
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, v))
}

func (c *conn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type harness struct {
	t      *testing.T
	db     *database.Database
	hub    *websocket.Hub
	engine *chat.Engine
}

func newHarness(t *testing.T, users ...string) *harness {
	t.Helper()
	db := testutil.NewDatabase(t)
	testutil.CreateUsers(t, db, users...)
	return newHarnessWithStore(t, db, db)
}

func newHarnessWithStore(t *testing.T, db *database.Database, store services.Store) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelError)
	hub := websocket.NewHub(log)
	engine := chat.NewEngine(store, hub, log, 50)
	require.NoError(t, engine.Start(t.Context()))
	return &harness{t: t, db: db, hub: hub, engine: engine}
}

func (h *harness) connect(id string) *conn {
	c := &conn{id: id}
	h.hub.Add(c)
	return c
}

func (h *harness) login(id, username string) *conn {
	h.t.Helper()
	c := h.connect(id)
	_, err := h.engine.Join(h.t.Context(), id, username)
	require.NoError(h.t, err)
	return c
}

func requireKind(t *testing.T, err error, kind chat.Kind) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, &chat.Error{Kind: kind})
}
