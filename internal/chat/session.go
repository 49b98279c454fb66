package chat

import (
	"context"
	"time"

	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
)

// Join открывает сессию пользователя на соединении. Прежнее соединение того же
// пользователя вытесняется без второго обновления присутствия.
func (e *Engine) Join(ctx context.Context, connID, username string) (Session, error) {
	user, err := e.store.FindUserByUsername(ctx, username)
	if err != nil {
		return Session{}, fromStore(err, KindUnknownUser, "user "+username+" is not registered")
	}

	now := time.Now()
	unlock := e.userLocks.Lock(username)
	if err := e.store.SetUserOnline(ctx, username, connID, now); err != nil {
		unlock()
		return Session{}, storeError(err, "mark user online")
	}
	user.IsOnline = true
	user.ConnectionID = &connID
	user.LastSeenAt = now

	session := Session{
		ConnectionID: connID,
		Username:     username,
		CurrentRoom:  models.GlobalRoomID,
		User:         *user,
		JoinedAt:     now,
	}
	evicted := e.registry.insert(session)
	unlock()

	if evicted != nil {
		e.dropPrevious(*evicted, connID)
	}

	if _, err := e.ensureGlobalRoom(ctx); err != nil {
		e.log.Error("Global room unavailable", "error", err)
	}
	if err := e.hub.Join(connID, models.GlobalRoomID); err != nil {
		e.log.Warn("Join global channel failed", "connection_id", connID, "error", err)
	}

	e.sendRoomList(ctx, connID)
	e.broadcastUserList(ctx)
	e.hub.EmitRoomExcept(models.GlobalRoomID, connID, &events.RoomMembershipChanged{
		Username: username,
		RoomID:   models.GlobalRoomID,
		Change:   events.MembershipJoined,
	})

	if err := e.reconcileOffline(ctx, session); err != nil {
		e.reportError(connID, events.TypeJoin, err)
	}

	e.log.Info("User joined", "username", username, "connection_id", connID)
	return session, nil
}

// dropPrevious убирает следы вытесненной сессии. Её последующий disconnect ничего не делает.
func (e *Engine) dropPrevious(prev Session, connID string) {
	leftRoom := prev.CurrentRoom != "" && prev.CurrentRoom != models.GlobalRoomID

	if prev.ConnectionID == connID {
		// повторный join на том же соединении
		if leftRoom {
			e.hub.Leave(connID, prev.CurrentRoom)
		}
	} else {
		e.hub.Close(prev.ConnectionID)
		e.hub.Remove(prev.ConnectionID)
		e.log.Info("Session superseded", "username", prev.Username, "old_connection_id", prev.ConnectionID, "connection_id", connID)
	}

	for _, roomID := range e.typing.Purge(prev.ConnectionID) {
		e.broadcastTyping(roomID)
	}

	if leftRoom {
		e.hub.EmitRoom(prev.CurrentRoom, &events.RoomMembershipChanged{
			Username: prev.Username,
			RoomID:   prev.CurrentRoom,
			Change:   events.MembershipLeft,
		})
	}
}

// Leave закрывает сессию. Повторный вызов или вызов для вытесненного соединения ничего не меняет.
func (e *Engine) Leave(ctx context.Context, connID string) {
	session, ok := e.registry.Resolve(connID)
	if !ok {
		e.hub.Remove(connID)
		e.typing.Purge(connID)
		return
	}

	unlock := e.userLocks.Lock(session.Username)
	session, ok = e.registry.remove(connID)
	if ok {
		if err := e.store.SetUserOffline(ctx, session.Username, time.Now()); err != nil {
			e.log.Error("Mark user offline failed", "username", session.Username, "error", err)
		}
	}
	unlock()

	typingRooms := e.typing.Purge(connID)
	e.hub.Remove(connID)
	if !ok {
		return
	}

	for _, roomID := range typingRooms {
		e.broadcastTyping(roomID)
	}
	if session.CurrentRoom != "" {
		e.hub.EmitRoom(session.CurrentRoom, &events.RoomMembershipChanged{
			Username: session.Username,
			RoomID:   session.CurrentRoom,
			Change:   events.MembershipLeft,
		})
	}
	e.broadcastUserList(ctx)

	e.log.Info("User left", "username", session.Username, "connection_id", connID)
}
