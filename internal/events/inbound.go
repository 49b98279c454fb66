package events

import "github.com/thereayou/voxus/internal/models"

const (
	TypeJoin               = "join"
	TypeSendRoomMessage    = "send_room_message"
	TypeSendPrivateMessage = "send_private_message"
	TypeLoadPrivateHistory = "load_private_history"
	TypeSetTyping          = "set_typing"
	TypeToggleReaction     = "toggle_reaction"
	TypeCreateRoom         = "create_room"
	TypeJoinRoom           = "join_room"
	TypeLeaveRoom          = "leave_room"
	TypeInviteToRoom       = "invite_to_room"
	TypeAcceptInvitation   = "accept_invitation"
	TypeDisconnect         = "disconnect"
)

// Inbound входящее событие от клиента
type Inbound interface {
	Name() string
}

type Join struct {
	Username string `json:"username" validate:"required"`
}

type SendRoomMessage struct {
	RoomID string `json:"roomId"`
	Body   string `json:"body"`
}

type SendPrivateMessage struct {
	Recipient string `json:"recipientUsername"`
	Body      string `json:"body"`
}

type LoadPrivateHistory struct {
	With string `json:"withUsername" validate:"required"`
}

type SetTyping struct {
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

type ToggleReaction struct {
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
	Op        string `json:"op,omitempty" validate:"omitempty,oneof=add remove toggle"`
}

type CreateRoom struct {
	RoomName  string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
}

type JoinRoom struct {
	RoomID string `json:"roomId" validate:"required"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId" validate:"required"`
}

type InviteToRoom struct {
	RoomID   string `json:"roomId" validate:"required"`
	Username string `json:"targetUsername" validate:"required"`
}

type AcceptInvitation struct {
	RoomID string `json:"roomId" validate:"required"`
}

// Disconnect создаётся транспортом при закрытии соединения, с провода не читается
type Disconnect struct{}

func (*Join) Name() string               { return TypeJoin }
func (*SendRoomMessage) Name() string    { return TypeSendRoomMessage }
func (*SendPrivateMessage) Name() string { return TypeSendPrivateMessage }
func (*LoadPrivateHistory) Name() string { return TypeLoadPrivateHistory }
func (*SetTyping) Name() string          { return TypeSetTyping }
func (*ToggleReaction) Name() string     { return TypeToggleReaction }
func (*CreateRoom) Name() string         { return TypeCreateRoom }
func (*JoinRoom) Name() string           { return TypeJoinRoom }
func (*LeaveRoom) Name() string          { return TypeLeaveRoom }
func (*InviteToRoom) Name() string       { return TypeInviteToRoom }
func (*AcceptInvitation) Name() string   { return TypeAcceptInvitation }
func (*Disconnect) Name() string         { return TypeDisconnect }

var inboundTypes = map[string]func() Inbound{
	TypeJoin:               func() Inbound { return &Join{} },
	TypeSendRoomMessage:    func() Inbound { return &SendRoomMessage{} },
	TypeSendPrivateMessage: func() Inbound { return &SendPrivateMessage{} },
	TypeLoadPrivateHistory: func() Inbound { return &LoadPrivateHistory{} },
	TypeSetTyping:          func() Inbound { return &SetTyping{} },
	TypeToggleReaction:     func() Inbound { return &ToggleReaction{} },
	TypeCreateRoom:         func() Inbound { return &CreateRoom{} },
	TypeJoinRoom:           func() Inbound { return &JoinRoom{} },
	TypeLeaveRoom:          func() Inbound { return &LeaveRoom{} },
	TypeInviteToRoom:       func() Inbound { return &InviteToRoom{} },
	TypeAcceptInvitation:   func() Inbound { return &AcceptInvitation{} },
}

// normalize значения по умолчанию, как у клиента: комната global, op toggle
func normalize(ev Inbound) Inbound {
	switch e := ev.(type) {
	case *SendRoomMessage:
		if e.RoomID == "" {
			e.RoomID = models.GlobalRoomID
		}
	case *SetTyping:
		if e.RoomID == "" {
			e.RoomID = models.GlobalRoomID
		}
	case *ToggleReaction:
		if e.Op == "" {
			e.Op = "toggle"
		}
	}
	return ev
}
