package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/thereayou/voxus/internal/events"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер кадра
	maxMessageSize = 64 * 1024
)

// EventHandler обрабатывает входящие события соединения по одному, в порядке прихода
type EventHandler interface {
	HandleEvent(ctx context.Context, connID, identity string, ev events.Inbound)
}

type Client struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	log      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient username это личность, подтверждённая при апгрейде соединения
func NewClient(conn *websocket.Conn, username string, bufferSize int, log *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		username: username,
		conn:     conn,
		send:     make(chan []byte, bufferSize),
		log:      log.With("conn", id, "username", username),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Username() string {
	return c.username
}

// Send ставит кадр в очередь записи, не блокируясь
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrClientQueueFull
	}
}

// Close закрывает очередь; write pump отправит close-кадр и закроет сокет
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump читает кадры клиента; по выходу сообщает обработчику о разрыве
func (c *Client) ReadPump(ctx context.Context, handler EventHandler) {
	defer func() {
		handler.HandleEvent(context.WithoutCancel(ctx), c.id, c.username, &events.Disconnect{})
		_ = c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var env events.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("WebSocket error", "error", err)
			}
			return
		}

		ev, err := events.Decode(env)
		if err != nil {
			c.sendError(events.ErrorKindInvalidEvent, err.Error())
			continue
		}

		handler.HandleEvent(ctx, c.id, c.username, ev)
	}
}

// WritePump отправляет кадры клиенту и держит keepalive
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Очередь закрыта
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(kind, detail string) {
	data, err := events.Encode(&events.Error{Kind: kind, Detail: detail})
	if err != nil {
		return
	}
	if err := c.Send(data); err != nil {
		c.log.Debug("Send error event failed", "error", err)
	}
}
