package websocket

import (
	"log/slog"
	"sync"

	"github.com/thereayou/voxus/internal/events"
)

// Conn живое соединение с точки зрения хаба
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

// Hub набор живых соединений и их подписок на каналы комнат.
// Получатели вычисляются в момент отправки.
type Hub struct {
	conns map[string]Conn

	// Соединения в каналах комнат
	channels map[string]map[string]Conn

	// Каналы каждого соединения
	memberOf map[string]map[string]struct{}

	mu  sync.RWMutex
	log *slog.Logger
}

// NewHub создает новый Hub
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]Conn),
		channels: make(map[string]map[string]Conn),
		memberOf: make(map[string]map[string]struct{}),
		log:      log,
	}
}

// Add регистрирует соединение
func (h *Hub) Add(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[conn.ID()] = conn
	h.memberOf[conn.ID()] = make(map[string]struct{})
	h.log.Debug("Connection registered", "conn", conn.ID())
}

// Remove убирает соединение из хаба и всех каналов, возвращает каналы, где оно было
func (h *Hub) Remove(connID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms := make([]string, 0, len(h.memberOf[connID]))
	for roomID := range h.memberOf[connID] {
		h.leaveUnsafe(connID, roomID)
		rooms = append(rooms, roomID)
	}
	delete(h.memberOf, connID)
	delete(h.conns, connID)

	return rooms
}

// Join подписывает соединение на канал комнаты
func (h *Hub) Join(connID, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return ErrConnectionNotFound
	}
	if _, ok := h.channels[roomID]; !ok {
		h.channels[roomID] = make(map[string]Conn)
	}
	h.channels[roomID][connID] = conn
	h.memberOf[connID][roomID] = struct{}{}
	return nil
}

// Leave отписывает соединение от канала
func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveUnsafe(connID, roomID)
}

func (h *Hub) leaveUnsafe(connID, roomID string) {
	if room, ok := h.channels[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(h.channels, roomID)
		}
	}
	if rooms, ok := h.memberOf[connID]; ok {
		delete(rooms, roomID)
	}
}

// InRoom проверяет подписку соединения на канал
func (h *Hub) InRoom(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.channels[roomID][connID]
	return ok
}

// Close закрывает соединение; его read pump сам сообщит о разрыве
func (h *Hub) Close(connID string) {
	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if ok {
		if err := conn.Close(); err != nil {
			h.log.Debug("Close connection failed", "conn", connID, "error", err)
		}
	}
}

// EmitTo отправляет событие одному соединению
func (h *Hub) EmitTo(connID string, ev events.Outbound) error {
	data, err := events.Encode(ev)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conn, ok := h.conns[connID]
	h.mu.RUnlock()

	if !ok {
		return ErrConnectionNotFound
	}
	return conn.Send(data)
}

// EmitRoom отправляет событие всем в канале комнаты
func (h *Hub) EmitRoom(roomID string, ev events.Outbound) {
	h.EmitRoomExcept(roomID, "", ev)
}

// EmitRoomExcept отправляет событие всем в канале, кроме excludeID
func (h *Hub) EmitRoomExcept(roomID, excludeID string, ev events.Outbound) {
	data, err := events.Encode(ev)
	if err != nil {
		h.log.Error("Encode event failed", "event", ev.Name(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, conn := range h.channels[roomID] {
		if id != excludeID {
			h.send(conn, data)
		}
	}
}

// EmitAll отправляет событие всем соединениям
func (h *Hub) EmitAll(ev events.Outbound) {
	data, err := events.Encode(ev)
	if err != nil {
		h.log.Error("Encode event failed", "event", ev.Name(), "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.conns {
		h.send(conn, data)
	}
}

func (h *Hub) send(conn Conn, data []byte) {
	if err := conn.Send(data); err != nil {
		h.log.Warn("Send to connection failed", "conn", conn.ID(), "error", err)
	}
}

// Count число живых соединений
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Stop закрывает все соединения
func (h *Hub) Stop() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			h.log.Debug("Close connection failed", "conn", conn.ID(), "error", err)
		}
	}
}
