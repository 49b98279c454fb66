package chat

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/thereayou/voxus/internal/events"
)

type ReactionOp string

const (
	ReactionAdd    ReactionOp = "add"
	ReactionRemove ReactionOp = "remove"
	ReactionToggle ReactionOp = "toggle"
)

func (op ReactionOp) valid() bool {
	switch op {
	case ReactionAdd, ReactionRemove, ReactionToggle:
		return true
	}
	return false
}

// ReactionState реакции сообщения: emoji -> пользователи и пользователь -> emoji.
// У пользователя не больше одной активной реакции.
type ReactionState struct {
	Reactions     map[string][]string
	UserReactions map[string]string
}

// Apply возвращает новое состояние, исходное не меняется
func (s ReactionState) Apply(op ReactionOp, username, emoji string) ReactionState {
	next := s.clone()
	prev, had := next.UserReactions[username]

	switch op {
	case ReactionAdd:
		if had && prev == emoji {
			return next
		}
		if had {
			next.remove(username, prev)
		}
		next.add(username, emoji)
	case ReactionRemove:
		if had && prev == emoji {
			next.remove(username, prev)
		}
	case ReactionToggle:
		if had {
			next.remove(username, prev)
		}
		if !had || prev != emoji {
			next.add(username, emoji)
		}
	}
	return next
}

func (s ReactionState) clone() ReactionState {
	out := ReactionState{
		Reactions:     make(map[string][]string, len(s.Reactions)),
		UserReactions: make(map[string]string, len(s.UserReactions)),
	}
	for emoji, users := range s.Reactions {
		out.Reactions[emoji] = append([]string(nil), users...)
	}
	for user, emoji := range s.UserReactions {
		out.UserReactions[user] = emoji
	}
	return out
}

func (s ReactionState) add(username, emoji string) {
	if !lo.Contains(s.Reactions[emoji], username) {
		s.Reactions[emoji] = append(s.Reactions[emoji], username)
	}
	s.UserReactions[username] = emoji
}

func (s ReactionState) remove(username, emoji string) {
	users := lo.Without(s.Reactions[emoji], username)
	if len(users) == 0 {
		delete(s.Reactions, emoji)
	} else {
		s.Reactions[emoji] = users
	}
	delete(s.UserReactions, username)
}

// ToggleReaction меняет реакцию пользователя на сообщение и рассылает итог после сохранения
func (e *Engine) ToggleReaction(ctx context.Context, connID, messageID, emoji string, op ReactionOp) (ReactionState, error) {
	session, err := e.resolve(connID)
	if err != nil {
		return ReactionState{}, err
	}

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return ReactionState{}, newError(KindInvalidMessage, "emoji is empty")
	}
	if op == "" {
		op = ReactionToggle
	}
	if !op.valid() {
		return ReactionState{}, newError(KindInvalidMessage, "unknown reaction op %q", op)
	}

	unlock := e.messageLocks.Lock(messageID)
	defer unlock()

	msg, err := e.store.GetMessage(ctx, messageID)
	if err != nil {
		return ReactionState{}, fromStore(err, KindMessageNotFound, "message "+messageID+" does not exist")
	}

	if msg.IsPrivate {
		if msg.Sender != session.Username && msg.RecipientName() != session.Username {
			return ReactionState{}, newError(KindForbidden, "message %s belongs to another conversation", messageID)
		}
	} else {
		room, err := e.store.GetRoom(ctx, msg.RoomID)
		if err != nil {
			return ReactionState{}, fromStore(err, KindRoomNotFound, "room "+msg.RoomID+" does not exist")
		}
		if !room.CanAccess(session.Username) {
			return ReactionState{}, newError(KindForbidden, "room %s is private", room.ID)
		}
	}

	state := ReactionState{Reactions: msg.Reactions, UserReactions: msg.UserReactions}.Apply(op, session.Username, emoji)
	msg.Reactions = state.Reactions
	msg.UserReactions = state.UserReactions
	if err := e.store.UpdateReactions(ctx, msg); err != nil {
		return ReactionState{}, storeError(err, "save reactions")
	}

	ev := &events.ReactionAggregate{
		MessageID:     msg.ID,
		Reactions:     state.Reactions,
		UserReactions: state.UserReactions,
	}
	if msg.IsPrivate {
		for _, username := range lo.Uniq([]string{msg.Sender, msg.RecipientName()}) {
			if target, ok := e.registry.FindConnection(username); ok {
				e.emitTo(target, ev)
			}
		}
	} else {
		e.hub.EmitRoom(msg.RoomID, ev)
	}
	return state, nil
}
