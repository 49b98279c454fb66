package events

import (
	"time"

	"github.com/thereayou/voxus/internal/models"
)

const (
	TypeUserList              = "user_list"
	TypeRoomList              = "room_list"
	TypeRoomCreated           = "room_created"
	TypeRoomJoined            = "room_joined"
	TypeRoomMessage           = "room_message"
	TypePrivateMessage        = "private_message"
	TypePrivateHistory        = "private_history"
	TypeOfflineNotification   = "offline_notification"
	TypeTypingUsers           = "typing_users"
	TypeReactionAggregate     = "reaction_aggregate"
	TypeRoomMembershipChanged = "room_membership_changed"
	TypeRoomInvitation        = "room_invitation"
	TypeError                 = "error"
)

// ErrorKindInvalidEvent кадр не разобран или не прошёл валидацию
const ErrorKindInvalidEvent = "InvalidEvent"

const (
	MembershipJoined = "joined"
	MembershipLeft   = "left"
)

// Outbound исходящее событие для клиента
type Outbound interface {
	Name() string
}

type UserEntry struct {
	Username     string    `json:"username"`
	ConnectionID *string   `json:"connectionId"`
	IsOnline     bool      `json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
}

type RoomView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedBy string    `json:"createdBy"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageView struct {
	ID                 string              `json:"id"`
	RoomID             string              `json:"roomId"`
	Sender             string              `json:"sender"`
	SenderConnectionID string              `json:"senderId"`
	Body               string              `json:"message"`
	IsPrivate          bool                `json:"isPrivate"`
	Recipient          string              `json:"recipientUsername,omitempty"`
	Delivered          bool                `json:"delivered"`
	Read               bool                `json:"read"`
	Reactions          map[string][]string `json:"reactions"`
	UserReactions      map[string]string   `json:"userReactions"`
	Timestamp          time.Time           `json:"timestamp"`
}

type UserList struct {
	Users []UserEntry `json:"users"`
}

type RoomList struct {
	Rooms []RoomView `json:"rooms"`
}

type RoomCreated struct {
	Room RoomView `json:"room"`
}

type RoomJoined struct {
	Room    RoomView      `json:"room"`
	History []MessageView `json:"messages"`
}

type RoomMessage struct {
	Message MessageView `json:"message"`
}

type PrivateMessage struct {
	Message MessageView `json:"message"`
}

type PrivateHistory struct {
	With     string        `json:"withUsername"`
	Messages []MessageView `json:"messages"`
}

type OfflineNotification struct {
	Message MessageView `json:"message"`
}

type TypingUsers struct {
	RoomID    string   `json:"roomId"`
	Usernames []string `json:"usernames"`
}

type ReactionAggregate struct {
	MessageID     string              `json:"messageId"`
	Reactions     map[string][]string `json:"reactions"`
	UserReactions map[string]string   `json:"userReactions"`
}

type RoomMembershipChanged struct {
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
	Change   string `json:"change"`
}

type RoomInvitation struct {
	Room    RoomView `json:"room"`
	Inviter string   `json:"inviterUsername"`
}

type Error struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (*UserList) Name() string              { return TypeUserList }
func (*RoomList) Name() string              { return TypeRoomList }
func (*RoomCreated) Name() string           { return TypeRoomCreated }
func (*RoomJoined) Name() string            { return TypeRoomJoined }
func (*RoomMessage) Name() string           { return TypeRoomMessage }
func (*PrivateMessage) Name() string        { return TypePrivateMessage }
func (*PrivateHistory) Name() string        { return TypePrivateHistory }
func (*OfflineNotification) Name() string   { return TypeOfflineNotification }
func (*TypingUsers) Name() string           { return TypeTypingUsers }
func (*ReactionAggregate) Name() string     { return TypeReactionAggregate }
func (*RoomMembershipChanged) Name() string { return TypeRoomMembershipChanged }
func (*RoomInvitation) Name() string        { return TypeRoomInvitation }
func (*Error) Name() string                 { return TypeError }

func NewRoomView(room *models.Room) RoomView {
	members := room.Members
	if members == nil {
		members = []string{}
	}
	return RoomView{
		ID:        room.ID,
		Name:      room.Name,
		IsPrivate: room.IsPrivate,
		CreatedBy: room.CreatedBy,
		Members:   members,
		CreatedAt: room.CreatedAt,
	}
}

func NewRoomViews(rooms []models.Room) []RoomView {
	views := make([]RoomView, len(rooms))
	for i := range rooms {
		views[i] = NewRoomView(&rooms[i])
	}
	return views
}

func NewMessageView(msg *models.Message) MessageView {
	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string][]string{}
	}
	userReactions := msg.UserReactions
	if userReactions == nil {
		userReactions = map[string]string{}
	}
	return MessageView{
		ID:                 msg.ID,
		RoomID:             msg.RoomID,
		Sender:             msg.Sender,
		SenderConnectionID: msg.SenderConnectionID,
		Body:               msg.Body,
		IsPrivate:          msg.IsPrivate,
		Recipient:          msg.RecipientName(),
		Delivered:          msg.Delivered,
		Read:               msg.Read,
		Reactions:          reactions,
		UserReactions:      userReactions,
		Timestamp:          msg.CreatedAt,
	}
}

func NewMessageViews(messages []models.Message) []MessageView {
	views := make([]MessageView, len(messages))
	for i := range messages {
		views[i] = NewMessageView(&messages[i])
	}
	return views
}
