package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thereayou/voxus/internal/models"
)

func envelope(t *testing.T, typ string, data any) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Envelope{Type: typ, Data: raw}
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want Inbound
	}{
		{
			name: "join",
			env:  envelope(t, TypeJoin, map[string]any{"username": "alice"}),
			want: &Join{Username: "alice"},
		},
		{
			name: "room message defaults to global",
			env:  envelope(t, TypeSendRoomMessage, map[string]any{"body": "hi"}),
			want: &SendRoomMessage{RoomID: models.GlobalRoomID, Body: "hi"},
		},
		{
			name: "private message keeps empty recipient for the engine",
			env:  envelope(t, TypeSendPrivateMessage, map[string]any{"body": "hi"}),
			want: &SendPrivateMessage{Body: "hi"},
		},
		{
			name: "reaction op defaults to toggle",
			env:  envelope(t, TypeToggleReaction, map[string]any{"messageId": "m1", "emoji": "👍"}),
			want: &ToggleReaction{MessageID: "m1", Emoji: "👍", Op: "toggle"},
		},
		{
			name: "typing",
			env:  envelope(t, TypeSetTyping, map[string]any{"roomId": "r1", "isTyping": true}),
			want: &SetTyping{RoomID: "r1", IsTyping: true},
		},
		{
			name: "invite",
			env:  envelope(t, TypeInviteToRoom, map[string]any{"roomId": "r1", "targetUsername": "bob"}),
			want: &InviteToRoom{RoomID: "r1", Username: "bob"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := Decode(tt.env)
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
		want error
	}{
		{name: "unknown type", env: Envelope{Type: "explode"}, want: ErrUnknownEvent},
		{name: "disconnect is transport only", env: Envelope{Type: TypeDisconnect}, want: ErrUnknownEvent},
		{name: "join without username", env: envelope(t, TypeJoin, map[string]any{}), want: ErrInvalidEvent},
		{name: "join_room without room", env: Envelope{Type: TypeJoinRoom}, want: ErrInvalidEvent},
		{name: "bad reaction op", env: envelope(t, TypeToggleReaction, map[string]any{"messageId": "m", "emoji": "x", "op": "explode"}), want: ErrInvalidEvent},
		{name: "malformed json", env: Envelope{Type: TypeJoin, Data: json.RawMessage(`{"username":`)}, want: ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.env)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncode_Envelope(t *testing.T) {
	req := require.New(t)

	raw, err := Encode(&TypingUsers{RoomID: "global", Usernames: []string{"alice"}})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(raw, &env))
	req.Equal(TypeTypingUsers, env.Type)
	req.False(env.Timestamp.IsZero())

	var payload TypingUsers
	req.NoError(json.Unmarshal(env.Data, &payload))
	req.Equal([]string{"alice"}, payload.Usernames)
}

func TestNewMessageView_NeverNilMaps(t *testing.T) {
	req := require.New(t)
	bob := "bob"

	view := NewMessageView(&models.Message{ID: "m1", Sender: "alice", Recipient: &bob, IsPrivate: true})

	req.NotNil(view.Reactions)
	req.NotNil(view.UserReactions)
	req.Equal("bob", view.Recipient)
}

func TestDecode_EveryInboundType(t *testing.T) {
	valid := map[string]struct {
		data any
		want Inbound
	}{
		TypeJoin:               {map[string]any{"username": "alice"}, &Join{Username: "alice"}},
		TypeSendRoomMessage:    {map[string]any{"roomId": "r1", "body": "hi"}, &SendRoomMessage{RoomID: "r1", Body: "hi"}},
		TypeSendPrivateMessage: {map[string]any{"recipientUsername": "bob", "body": "hi"}, &SendPrivateMessage{Recipient: "bob", Body: "hi"}},
		TypeLoadPrivateHistory: {map[string]any{"withUsername": "bob"}, &LoadPrivateHistory{With: "bob"}},
		TypeSetTyping:          {map[string]any{"isTyping": true}, &SetTyping{RoomID: models.GlobalRoomID, IsTyping: true}},
		TypeToggleReaction:     {map[string]any{"messageId": "m1", "emoji": "👍", "op": "add"}, &ToggleReaction{MessageID: "m1", Emoji: "👍", Op: "add"}},
		TypeCreateRoom:         {map[string]any{"name": "general", "isPrivate": true}, &CreateRoom{RoomName: "general", IsPrivate: true}},
		TypeJoinRoom:           {map[string]any{"roomId": "r1"}, &JoinRoom{RoomID: "r1"}},
		TypeLeaveRoom:          {map[string]any{"roomId": "r1"}, &LeaveRoom{RoomID: "r1"}},
		TypeInviteToRoom:       {map[string]any{"roomId": "r1", "targetUsername": "bob"}, &InviteToRoom{RoomID: "r1", Username: "bob"}},
		TypeAcceptInvitation:   {map[string]any{"roomId": "r1"}, &AcceptInvitation{RoomID: "r1"}},
	}

	for typ := range inboundTypes {
		t.Run(typ, func(t *testing.T) {
			req := require.New(t)
			tc, ok := valid[typ]
			req.True(ok, "no valid frame for %s", typ)

			got, err := Decode(envelope(t, typ, tc.data))

			req.NoError(err)
			req.Equal(tc.want, got)
			req.Equal(typ, got.Name())
		})
	}
}
