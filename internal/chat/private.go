package chat

import (
	"context"
	"strings"
	"time"

	"github.com/thereayou/voxus/internal/events"
	"github.com/thereayou/voxus/internal/models"
)

const threadPrefix = "private:"

// ThreadID идентификатор переписки двух пользователей, не зависит от порядка
func ThreadID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return threadPrefix + a + ":" + b
}

// SendPrivate сохраняет личное сообщение и доставляет его, если получатель онлайн.
// Отправитель всегда получает ровно одно эхо.
func (e *Engine) SendPrivate(ctx context.Context, connID, recipient, body string) (*models.Message, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil, newError(KindMissingRecipient, "private message needs a recipient")
	}
	if recipient == session.Username {
		return nil, newError(KindInvalidMessage, "cannot send a private message to yourself")
	}
	body, err = checkBody(body)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.FindUserByUsername(ctx, recipient); err != nil {
		return nil, fromStore(err, KindUnknownUser, "user "+recipient+" is not registered")
	}

	msg := &models.Message{
		RoomID:             ThreadID(session.Username, recipient),
		Sender:             session.Username,
		SenderConnectionID: connID,
		Body:               body,
		IsPrivate:          true,
		Recipient:          &recipient,
		Reactions:          map[string][]string{},
		UserReactions:      map[string]string{},
		CreatedAt:          time.Now(),
	}

	// под замком получателя: либо его join увидит сообщение среди недоставленных,
	// либо мы увидим его соединение
	unlock := e.userLocks.Lock(recipient)
	targetConn, online := e.registry.FindConnection(recipient)
	msg.Delivered = online
	err = e.store.SaveMessage(ctx, msg)
	unlock()
	if err != nil {
		return nil, storeError(err, "save private message")
	}

	if online {
		if err := e.hub.EmitTo(targetConn, &events.PrivateMessage{Message: events.NewMessageView(msg)}); err != nil {
			e.log.Warn("Private message not handed to transport", "message_id", msg.ID, "recipient", recipient, "error", err)
			if err := e.store.SetDelivered(ctx, msg.ID, false); err != nil {
				e.log.Error("Reset delivered flag failed", "message_id", msg.ID, "error", err)
			} else {
				msg.Delivered = false
			}
		}
	}

	e.emitTo(connID, &events.PrivateMessage{Message: events.NewMessageView(msg)})
	return msg, nil
}

// LoadHistory переписка с пользователем; сообщения к запрашивающему помечаются прочитанными
func (e *Engine) LoadHistory(ctx context.Context, connID, with string) ([]models.Message, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return nil, err
	}

	with = strings.TrimSpace(with)
	if with == "" {
		return nil, newError(KindMissingRecipient, "history needs the other user")
	}

	thread := ThreadID(session.Username, with)
	messages, err := e.store.GetRoomMessages(ctx, thread, e.historyLimit)
	if err != nil {
		return nil, storeError(err, "load private history")
	}

	for i := range messages {
		recipient := with
		if messages[i].Sender != session.Username {
			recipient = session.Username
		}
		messages[i].Recipient = &recipient
	}

	if _, err := e.store.MarkThreadRead(ctx, thread, session.Username); err != nil {
		e.log.Warn("Mark thread read failed", "thread", thread, "username", session.Username, "error", err)
	}

	e.emitTo(connID, &events.PrivateHistory{
		With:     with,
		Messages: events.NewMessageViews(messages),
	})
	return messages, nil
}

// reconcileOffline отдает недоставленные личные сообщения по одному, отмечая каждое
// только после передачи транспорту. Останавливается, если сессию вытеснили.
func (e *Engine) reconcileOffline(ctx context.Context, session Session) error {
	unlock := e.deliveryLocks.Lock(session.Username)
	defer unlock()

	pending, err := e.store.GetUndeliveredMessages(ctx, session.Username)
	if err != nil {
		return storeError(err, "load undelivered messages")
	}

	delivered := 0
	for i := range pending {
		if current, ok := e.registry.FindConnection(session.Username); !ok || current != session.ConnectionID {
			break
		}

		msg := &pending[i]
		// уведомление и есть доставка, поэтому в кадре уже delivered
		view := events.NewMessageView(msg)
		view.Delivered = true
		if err := e.hub.EmitTo(session.ConnectionID, &events.OfflineNotification{Message: view}); err != nil {
			e.log.Warn("Offline delivery interrupted", "username", session.Username, "error", err)
			break
		}
		if err := e.store.SetDelivered(ctx, msg.ID, true); err != nil {
			return storeError(err, "mark message delivered")
		}
		msg.Delivered = true
		delivered++
	}

	if delivered > 0 {
		e.log.Info("Offline messages delivered", "username", session.Username, "count", delivered)
	}
	return nil
}
