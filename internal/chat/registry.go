package chat

import (
	"sync"
	"time"

	"github.com/thereayou/voxus/internal/models"
)

// Session живая привязка соединения к пользователю и текущей комнате
type Session struct {
	ConnectionID string
	Username     string
	CurrentRoom  string
	User         models.User
	JoinedAt     time.Time
}

// Registry кто онлайн и где. Единственный писатель соединений пользователей.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Session
	byUser map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Session),
		byUser: make(map[string]string),
	}
}

// insert добавляет сессию. Возвращает вытесненную сессию того же пользователя
// (повторный вход) или прежнюю сессию этого же соединения.
func (r *Registry) insert(session Session) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted *Session
	if prevConn, ok := r.byUser[session.Username]; ok {
		if prev, ok := r.byConn[prevConn]; ok {
			evicted = prev
			delete(r.byConn, prevConn)
		}
	}
	if prev, ok := r.byConn[session.ConnectionID]; ok {
		evicted = prev
		delete(r.byUser, prev.Username)
	}

	s := session
	r.byConn[s.ConnectionID] = &s
	r.byUser[s.Username] = s.ConnectionID

	if evicted == nil {
		return nil
	}
	out := *evicted
	return &out
}

// remove удаляет сессию соединения, если она ещё в реестре
func (r *Registry) remove(connID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	delete(r.byConn, connID)
	if r.byUser[s.Username] == connID {
		delete(r.byUser, s.Username)
	}
	return *s, true
}

// Resolve сессия соединения (копия)
func (r *Registry) Resolve(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// FindConnection соединение пользователя, если он онлайн
func (r *Registry) FindConnection(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byUser[username]
	return connID, ok
}

func (r *Registry) IsOnline(username string) bool {
	_, ok := r.FindConnection(username)
	return ok
}

// setRoom меняет текущую комнату сессии
func (r *Registry) setRoom(connID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byConn[connID]
	if ok {
		s.CurrentRoom = roomID
	}
	return ok
}

// Sessions снимок всех сессий
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.byConn))
	for _, s := range r.byConn {
		out = append(out, *s)
	}
	return out
}
