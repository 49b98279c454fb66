package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
)

type typingKey struct {
	connID string
	roomID string
}

// TypingTable кто печатает: ключ (соединение, комната), плюс индекс по соединению для очистки
type TypingTable struct {
	mu      sync.Mutex
	entries map[typingKey]string
	byConn  map[string]map[string]struct{}
}

func NewTypingTable() *TypingTable {
	return &TypingTable{
		entries: make(map[typingKey]string),
		byConn:  make(map[string]map[string]struct{}),
	}
}

// Set ставит или снимает флаг и возвращает печатающих в комнате после изменения
func (t *TypingTable) Set(connID, roomID, username string, typing bool) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{connID: connID, roomID: roomID}
	if typing {
		t.entries[key] = username
		rooms, ok := t.byConn[connID]
		if !ok {
			rooms = make(map[string]struct{})
			t.byConn[connID] = rooms
		}
		rooms[roomID] = struct{}{}
	} else {
		t.deleteUnsafe(key)
	}
	return t.usersUnsafe(roomID)
}

// Users печатающие в комнате, отсортированы, без повторов
func (t *TypingTable) Users(roomID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usersUnsafe(roomID)
}

// Purge удаляет все записи соединения и возвращает затронутые комнаты
func (t *TypingTable) Purge(connID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	rooms := lo.Keys(t.byConn[connID])
	for _, roomID := range rooms {
		delete(t.entries, typingKey{connID: connID, roomID: roomID})
	}
	delete(t.byConn, connID)
	sort.Strings(rooms)
	return rooms
}

func (t *TypingTable) deleteUnsafe(key typingKey) bool {
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	if rooms, ok := t.byConn[key.connID]; ok {
		delete(rooms, key.roomID)
		if len(rooms) == 0 {
			delete(t.byConn, key.connID)
		}
	}
	return true
}

func (t *TypingTable) usersUnsafe(roomID string) []string {
	users := make([]string, 0)
	for key, username := range t.entries {
		if key.roomID == roomID {
			users = append(users, username)
		}
	}
	users = lo.Uniq(users)
	sort.Strings(users)
	return users
}

// clear снимает флаг одной пары; true если запись была
func (t *TypingTable) clear(connID, roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deleteUnsafe(typingKey{connID: connID, roomID: roomID})
}

// SetTyping ставит флаг набора текста и рассылает список печатающих в комнату
func (e *Engine) SetTyping(ctx context.Context, connID, roomID string, typing bool) error {
	session, err := e.resolve(connID)
	if err != nil {
		return err
	}
	if roomID == "" {
		roomID = models.GlobalRoomID
	}
	if typing && !e.hub.InRoom(connID, roomID) {
		return newError(KindForbidden, "not in room %s", roomID)
	}

	usernames := e.typing.Set(connID, roomID, session.Username, typing)
	e.hub.EmitRoom(roomID, &events.TypingUsers{RoomID: roomID, Usernames: usernames})
	return nil
}

func (e *Engine) broadcastTyping(roomID string) {
	e.hub.EmitRoom(roomID, &events.TypingUsers{RoomID: roomID, Usernames: e.typing.Users(roomID)})
}
