package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
	"github.com/thereayou/voxus/internal/services"
)

const (
	globalRoomName = "Global Chat"
	systemUser     = "system"
)

// Transport доставка событий и членство соединений в каналах комнат
type Transport interface {
	Join(connID, roomID string) error
	Leave(connID, roomID string)
	Remove(connID string) []string
	InRoom(connID, roomID string) bool
	Close(connID string)
	EmitTo(connID string, ev events.Outbound) error
	EmitRoom(roomID string, ev events.Outbound)
	EmitRoomExcept(roomID, excludeID string, ev events.Outbound)
	EmitAll(ev events.Outbound)
}

type Engine struct {
	store        services.Store
	hub          Transport
	registry     *Registry
	typing       *TypingTable
	invitations  *invitationTable
	validate     *validator.Validate
	log          *slog.Logger
	historyLimit int

	userLocks     *keyedMutex
	deliveryLocks *keyedMutex
	roomLocks     *keyedMutex
	messageLocks  *keyedMutex

	// presenceMu держит порядок рассылок user_list равным порядку снимков
	presenceMu sync.Mutex
}

func NewEngine(store services.Store, hub Transport, log *slog.Logger, historyLimit int) *Engine {
	return &Engine{
		store:         store,
		hub:           hub,
		registry:      NewRegistry(),
		typing:        NewTypingTable(),
		invitations:   newInvitationTable(),
		validate:      validator.New(),
		log:           log,
		historyLimit:  historyLimit,
		userLocks:     newKeyedMutex(),
		deliveryLocks: newKeyedMutex(),
		roomLocks:     newKeyedMutex(),
		messageLocks:  newKeyedMutex(),
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start создаёт глобальную комнату, если её ещё нет
func (e *Engine) Start(ctx context.Context) error {
	room, err := e.ensureGlobalRoom(ctx)
	if err != nil {
		return err
	}
	e.log.Info("Chat engine started", "global_room", room.ID)
	return nil
}

func (e *Engine) ensureGlobalRoom(ctx context.Context) (*models.Room, error) {
	unlock := e.roomLocks.Lock(models.GlobalRoomID)
	defer unlock()

	room, err := e.store.EnsureRoom(ctx, &models.Room{
		ID:        models.GlobalRoomID,
		Name:      globalRoomName,
		CreatedBy: systemUser,
		Members:   []string{},
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, storeError(err, "ensure global room")
	}
	return room, nil
}

// HandleEvent обрабатывает одно событие соединения. identity пользователь из токена.
func (e *Engine) HandleEvent(ctx context.Context, connID, identity string, ev events.Inbound) {
	var err error

	switch ev := ev.(type) {
	case *events.Join:
		if ev.Username != identity {
			err = newError(KindUnauthenticated, "join as %q does not match the authenticated user", ev.Username)
			break
		}
		_, err = e.Join(ctx, connID, ev.Username)
	case *events.Disconnect:
		e.Leave(ctx, connID)
	case *events.SendRoomMessage:
		_, err = e.RouteMessage(ctx, connID, ev.RoomID, ev.Body)
	case *events.SendPrivateMessage:
		_, err = e.SendPrivate(ctx, connID, ev.Recipient, ev.Body)
	case *events.LoadPrivateHistory:
		_, err = e.LoadHistory(ctx, connID, ev.With)
	case *events.SetTyping:
		err = e.SetTyping(ctx, connID, ev.RoomID, ev.IsTyping)
	case *events.ToggleReaction:
		_, err = e.ToggleReaction(ctx, connID, ev.MessageID, ev.Emoji, ReactionOp(ev.Op))
	case *events.CreateRoom:
		_, err = e.CreateRoom(ctx, connID, ev.RoomName, ev.IsPrivate)
	case *events.JoinRoom:
		_, err = e.JoinRoom(ctx, connID, ev.RoomID)
	case *events.LeaveRoom:
		err = e.LeaveRoom(ctx, connID, ev.RoomID)
	case *events.InviteToRoom:
		err = e.InviteToRoom(ctx, connID, ev.RoomID, ev.Username)
	case *events.AcceptInvitation:
		_, err = e.AcceptInvitation(ctx, connID, ev.RoomID)
	default:
		err = newError(KindInvalidMessage, "unsupported event %s", ev.Name())
	}

	if err != nil {
		e.reportError(connID, ev.Name(), err)
	}
}

func (e *Engine) reportError(connID, event string, err error) {
	var chatErr *Error
	if !errors.As(err, &chatErr) {
		chatErr = &Error{Kind: KindStoreUnavailable, Detail: "internal error", Err: err}
	}

	if chatErr.Kind == KindStoreUnavailable {
		e.log.Error("Event failed", "event", event, "connection_id", connID, "error", err)
	} else {
		e.log.Debug("Event rejected", "event", event, "connection_id", connID, "kind", chatErr.Kind, "detail", chatErr.Detail)
	}

	if sendErr := e.hub.EmitTo(connID, &events.Error{Kind: string(chatErr.Kind), Detail: chatErr.Detail}); sendErr != nil {
		e.log.Debug("Error event not delivered", "connection_id", connID, "error", sendErr)
	}
}

// resolve сессия соединения или Unauthenticated
func (e *Engine) resolve(connID string) (Session, error) {
	session, ok := e.registry.Resolve(connID)
	if !ok {
		return Session{}, newError(KindUnauthenticated, "connection has not joined")
	}
	return session, nil
}

func (e *Engine) emitTo(connID string, ev events.Outbound) {
	if err := e.hub.EmitTo(connID, ev); err != nil {
		e.log.Warn("Event not delivered", "event", ev.Name(), "connection_id", connID, "error", err)
	}
}
