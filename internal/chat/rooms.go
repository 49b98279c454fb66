package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
)

var roomNameRule = fmt.Sprintf("min=%d,max=%d", models.RoomNameMinLen, models.RoomNameMaxLen)

type invitationKey struct {
	roomID   string
	username string
}

// invitationTable приглашения в приватные комнаты, ждущие accept_invitation
type invitationTable struct {
	mu      sync.Mutex
	pending map[invitationKey]string
}

func newInvitationTable() *invitationTable {
	return &invitationTable{pending: make(map[invitationKey]string)}
}

func (t *invitationTable) add(roomID, username, inviter string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[invitationKey{roomID: roomID, username: username}] = inviter
}

// take забирает приглашение; false если его не было
func (t *invitationTable) take(roomID, username string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := invitationKey{roomID: roomID, username: username}
	inviter, ok := t.pending[key]
	delete(t.pending, key)
	return inviter, ok
}

// CreateRoom создает комнату. Автор приватной комнаты сразу становится участником и входит в неё.
func (e *Engine) CreateRoom(ctx context.Context, connID, name string, isPrivate bool) (*models.Room, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}

	room, err := e.persistRoom(ctx, session.Username, name, isPrivate)
	if err != nil {
		return nil, err
	}

	view := events.NewRoomView(room)
	e.emitTo(connID, &events.RoomCreated{Room: view})

	if isPrivate {
		e.switchRoom(session, room.ID)
		e.emitTo(connID, &events.RoomJoined{Room: view, History: []events.MessageView{}})
	} else {
		e.broadcastRoomList(ctx)
	}
	return room, nil
}

// CreateRoomAs создание комнаты по HTTP. Каналы соединений не меняются.
func (e *Engine) CreateRoomAs(ctx context.Context, username, name string, isPrivate bool) (*models.Room, error) {
	room, err := e.persistRoom(ctx, username, name, isPrivate)
	if err != nil {
		return nil, err
	}

	if !isPrivate {
		e.broadcastRoomList(ctx)
	} else if connID, ok := e.registry.FindConnection(username); ok {
		e.sendRoomList(ctx, connID)
	}
	return room, nil
}

func (e *Engine) persistRoom(ctx context.Context, creator, name string, isPrivate bool) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if err := e.validate.Var(name, roomNameRule); err != nil {
		return nil, newError(KindInvalidName, "room name must be %d to %d characters", models.RoomNameMinLen, models.RoomNameMaxLen)
	}

	room := &models.Room{
		Name:      name,
		IsPrivate: isPrivate,
		CreatedBy: creator,
		Members:   []string{},
		CreatedAt: time.Now(),
	}
	if isPrivate {
		room.Members = []string{creator}
	}
	if err := e.store.CreateRoom(ctx, room); err != nil {
		return nil, storeError(err, "create room")
	}

	e.log.Info("Room created", "room_id", room.ID, "name", room.Name, "private", isPrivate, "created_by", creator)
	return room, nil
}

// JoinRoom делает комнату текущей для соединения и отдает историю
func (e *Engine) JoinRoom(ctx context.Context, connID, roomID string) (*models.Room, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}

	room, err := e.accessibleRoom(ctx, session.Username, roomID)
	if err != nil {
		return nil, err
	}
	if room, err = e.addMember(ctx, room, session.Username); err != nil {
		return nil, err
	}

	history, err := e.store.GetRoomMessages(ctx, room.ID, e.historyLimit)
	if err != nil {
		return nil, storeError(err, "load room history")
	}

	e.switchRoom(session, room.ID)
	e.emitTo(connID, &events.RoomJoined{
		Room:    events.NewRoomView(room),
		History: events.NewMessageViews(history),
	})
	e.hub.EmitRoomExcept(room.ID, connID, &events.RoomMembershipChanged{
		Username: session.Username,
		RoomID:   room.ID,
		Change:   events.MembershipJoined,
	})

	e.log.Info("Room joined", "room_id", room.ID, "username", session.Username, "history", len(history))
	return room, nil
}

// LeaveRoom отписывает соединение от канала комнаты. Участие в комнате сохраняется.
func (e *Engine) LeaveRoom(ctx context.Context, connID, roomID string) error {
	session, err := e.resolve(connID)
	if err != nil {
		return err
	}
	if !e.hub.InRoom(connID, roomID) {
		return nil
	}

	e.hub.Leave(connID, roomID)
	if session.CurrentRoom == roomID {
		e.registry.setRoom(connID, "")
	}
	if e.typing.clear(connID, roomID) {
		e.broadcastTyping(roomID)
	}
	e.hub.EmitRoom(roomID, &events.RoomMembershipChanged{
		Username: session.Username,
		RoomID:   roomID,
		Change:   events.MembershipLeft,
	})
	return nil
}

// JoinRoomAs сохраняет участие по HTTP, не трогая каналы живой сессии
func (e *Engine) JoinRoomAs(ctx context.Context, username, roomID string) (*models.Room, error) {
	room, err := e.accessibleRoom(ctx, username, roomID)
	if err != nil {
		return nil, err
	}
	return e.addMember(ctx, room, username)
}

// LeaveRoomAs отписывает живую сессию пользователя от канала. Без сессии выходить не из чего.
func (e *Engine) LeaveRoomAs(ctx context.Context, username, roomID string) error {
	if _, err := e.store.GetRoom(ctx, roomID); err != nil {
		return fromStore(err, KindRoomNotFound, "room "+roomID+" does not exist")
	}
	connID, ok := e.registry.FindConnection(username)
	if !ok {
		return nil
	}
	return e.LeaveRoom(ctx, connID, roomID)
}

// Room комната, если у пользователя есть к ней доступ
func (e *Engine) Room(ctx context.Context, username, roomID string) (*models.Room, error) {
	return e.accessibleRoom(ctx, username, roomID)
}

// RoomMembers участники комнаты с онлайн-статусом из реестра
func (e *Engine) RoomMembers(ctx context.Context, username, roomID string) ([]events.UserEntry, error) {
	room, err := e.accessibleRoom(ctx, username, roomID)
	if err != nil {
		return nil, err
	}
	entries, err := e.UserList(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(entries, func(entry events.UserEntry, _ int) bool {
		return room.HasMember(entry.Username)
	}), nil
}

func (e *Engine) accessibleRoom(ctx context.Context, username, roomID string) (*models.Room, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fromStore(err, KindRoomNotFound, "room "+roomID+" does not exist")
	}
	if !room.CanAccess(username) {
		return nil, newError(KindForbidden, "room %s is private", roomID)
	}
	return room, nil
}

func (e *Engine) addMember(ctx context.Context, room *models.Room, username string) (*models.Room, error) {
	if room.HasMember(username) {
		return room, nil
	}
	unlock := e.roomLocks.Lock(room.ID)
	defer unlock()

	updated, err := e.store.AddRoomMember(ctx, room.ID, username)
	if err != nil {
		return nil, fromStore(err, KindRoomNotFound, "add member to room "+room.ID)
	}
	return updated, nil
}

// InviteToRoom приглашает пользователя в приватную комнату. Приглашение офлайн-пользователю отбрасывается.
func (e *Engine) InviteToRoom(ctx context.Context, connID, roomID, target string) error {
	session, err := e.resolve(connID)
	if err != nil {
		return err
	}

	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return fromStore(err, KindRoomNotFound, "room "+roomID+" does not exist")
	}
	if !room.IsPrivate {
		return newError(KindForbidden, "invitations are only for private rooms")
	}
	if !room.HasMember(session.Username) {
		return newError(KindForbidden, "only members can invite to room %s", roomID)
	}

	targetConn, online := e.registry.FindConnection(target)
	if !online {
		e.log.Debug("Invitation dropped, user offline", "room_id", roomID, "target", target)
		return nil
	}

	e.invitations.add(room.ID, target, session.Username)
	e.emitTo(targetConn, &events.RoomInvitation{
		Room:    events.NewRoomView(room),
		Inviter: session.Username,
	})
	return nil
}

// AcceptInvitation добавляет приглашённого в участники комнаты
func (e *Engine) AcceptInvitation(ctx context.Context, connID, roomID string) (*models.Room, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}

	inviter, ok := e.invitations.take(roomID, session.Username)
	if !ok {
		return nil, newError(KindForbidden, "no pending invitation to room %s", roomID)
	}

	unlock := e.roomLocks.Lock(roomID)
	room, err := e.store.AddRoomMember(ctx, roomID, session.Username)
	unlock()
	if err != nil {
		chatErr := fromStore(err, KindRoomNotFound, "room "+roomID+" does not exist")
		if chatErr.Kind == KindStoreUnavailable {
			e.invitations.add(roomID, session.Username, inviter)
		}
		return nil, chatErr
	}

	e.sendRoomList(ctx, connID)
	return room, nil
}

// RouteMessage сохраняет сообщение и рассылает его каналу комнаты
func (e *Engine) RouteMessage(ctx context.Context, connID, roomID, body string) (*models.Message, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}
	return e.routeMessage(ctx, session.Username, connID, roomID, body)
}

// PostMessage отправка в комнату по HTTP. Соединение отправителя берётся из реестра, если оно есть.
func (e *Engine) PostMessage(ctx context.Context, username, roomID, body string) (*models.Message, error) {
	connID, _ := e.registry.FindConnection(username)
	return e.routeMessage(ctx, username, connID, roomID, body)
}

func (e *Engine) routeMessage(ctx context.Context, sender, connID, roomID, body string) (*models.Message, error) {
	if roomID == "" {
		roomID = models.GlobalRoomID
	}

	body, err := checkBody(body)
	if err != nil {
		return nil, err
	}

	room, err := e.accessibleRoom(ctx, sender, roomID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:             room.ID,
		Sender:             sender,
		SenderConnectionID: connID,
		Body:               body,
		Reactions:          map[string][]string{},
		UserReactions:      map[string]string{},
		CreatedAt:          time.Now(),
	}
	if err := e.store.SaveMessage(ctx, msg); err != nil {
		return nil, storeError(err, "save message")
	}

	e.hub.EmitRoom(room.ID, &events.RoomMessage{Message: events.NewMessageView(msg)})
	return msg, nil
}

// VisibleRooms публичные комнаты и приватные, где пользователь участник
func (e *Engine) VisibleRooms(ctx context.Context, username string) ([]models.Room, error) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		return nil, storeError(err, "list rooms")
	}
	return visibleTo(rooms, username), nil
}

func visibleTo(rooms []models.Room, username string) []models.Room {
	return lo.Filter(rooms, func(room models.Room, _ int) bool {
		return room.CanAccess(username)
	})
}

// RoomHistory последние сообщения комнаты, если пользователь имеет к ней доступ
func (e *Engine) RoomHistory(ctx context.Context, username, roomID string, limit int) ([]models.Message, error) {
	room, err := e.accessibleRoom(ctx, username, roomID)
	if err != nil {
		return nil, err
	}

	messages, err := e.store.GetRoomMessages(ctx, room.ID, limit)
	if err != nil {
		return nil, storeError(err, "load room history")
	}
	return messages, nil
}

func (e *Engine) switchRoom(session Session, roomID string) {
	prev := session.CurrentRoom
	if prev != "" && prev != roomID {
		e.hub.Leave(session.ConnectionID, prev)
		if e.typing.clear(session.ConnectionID, prev) {
			e.broadcastTyping(prev)
		}
	}

	if err := e.hub.Join(session.ConnectionID, roomID); err != nil {
		e.log.Warn("Join room channel failed", "connection_id", session.ConnectionID, "room_id", roomID, "error", err)
	}
	e.registry.setRoom(session.ConnectionID, roomID)
}

func (e *Engine) sendRoomList(ctx context.Context, connID string) {
	session, ok := e.registry.Resolve(connID)
	if !ok {
		return
	}
	rooms, err := e.VisibleRooms(ctx, session.Username)
	if err != nil {
		e.reportError(connID, events.TypeRoomList, err)
		return
	}
	e.emitTo(connID, &events.RoomList{Rooms: events.NewRoomViews(rooms)})
}

// broadcastRoomList каждому соединению свой список видимых комнат
func (e *Engine) broadcastRoomList(ctx context.Context) {
	rooms, err := e.store.ListRooms(ctx)
	if err != nil {
		e.log.Error("List rooms failed", "error", err)
		return
	}
	for _, session := range e.registry.Sessions() {
		views := events.NewRoomViews(visibleTo(rooms, session.Username))
		e.emitTo(session.ConnectionID, &events.RoomList{Rooms: views})
	}
}

// checkBody обрезает пробелы и проверяет длину тела сообщения
func checkBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", newError(KindInvalidMessage, "message is empty")
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		return "", newError(KindInvalidMessage, "message is longer than %d characters", models.MaxMessageLength)
	}
	return body, nil
}
