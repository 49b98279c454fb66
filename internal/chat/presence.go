package chat

import (
	"context"

	"github.com/samber/lo"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
)

// UserList все зарегистрированные пользователи, онлайн-статус берётся из реестра
func (e *Engine) UserList(ctx context.Context) ([]events.UserEntry, error) {
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(err, "list users")
	}

	sessions := lo.SliceToMap(e.registry.Sessions(), func(s Session) (string, Session) {
		return s.Username, s
	})

	entries := make([]events.UserEntry, 0, len(users))
	for _, user := range users {
		s, ok := sessions[user.Username]
		entries = append(entries, userEntry(&user, s.ConnectionID, ok))
	}
	return entries, nil
}

// UserEntry запись присутствия одного пользователя
func (e *Engine) UserEntry(ctx context.Context, username string) (events.UserEntry, error) {
	user, err := e.store.FindUserByUsername(ctx, username)
	if err != nil {
		return events.UserEntry{}, fromStore(err, KindUnknownUser, "user "+username+" does not exist")
	}
	connID, ok := e.registry.FindConnection(username)
	return userEntry(user, connID, ok), nil
}

func userEntry(user *models.User, connID string, online bool) events.UserEntry {
	entry := events.UserEntry{
		Username: user.Username,
		LastSeen: user.LastSeenAt,
	}
	if online {
		entry.ConnectionID = &connID
		entry.IsOnline = true
	}
	return entry
}

// broadcastUserList один снимок присутствия всем соединениям
func (e *Engine) broadcastUserList(ctx context.Context) {
	e.presenceMu.Lock()
	defer e.presenceMu.Unlock()

	entries, err := e.UserList(ctx)
	if err != nil {
		e.log.Error("Presence snapshot failed", "error", err)
		return
	}
	e.hub.EmitAll(&events.UserList{Users: entries})
}
