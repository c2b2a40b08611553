package realtime

import (
	"net/http"
	"time"

	"github.com/go-multichat/server/internal/types"
)

// Event types pushed to subscribed clients.
const (
	EventMessageCreated  = "message.created"
	EventMessageUpdated  = "message.updated"
	EventMessageDeleted  = "message.deleted"
	EventReactionAdded   = "reaction.added"
	EventReactionRemoved = "reaction.removed"
	EventMemberAdded     = "member.added"
	EventRoleChanged     = "role.changed"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a frame received from a websocket client. Exactly one
// of the operation fields is set.
type ClientMessage struct {
	BaseMessage
	Subscribe   *Subscribe   `json:"subscribe,omitempty"`
	Unsubscribe *Unsubscribe `json:"unsubscribe,omitempty"`
	UserId      int          `json:"-"`
	client      *Client
}

type Subscribe struct {
	ChatId int `json:"chat_id"`
}

type Unsubscribe struct {
	ChatId int `json:"chat_id"`
}

// ServerMessage is a frame sent to a websocket client: either a direct
// response to one of its requests or a chat event.
type ServerMessage struct {
	BaseMessage
	Response *Response `json:"response,omitempty"`
	Event    *Event    `json:"event,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

// Event describes a change inside a chat. Message carries the full
// payload for created and updated messages; MessageId alone identifies
// deletions.
type Event struct {
	Type      string          `json:"type"`
	ChatId    int             `json:"chat_id"`
	MessageId int             `json:"message_id,omitempty"`
	Message   *types.Message  `json:"message,omitempty"`
	Reaction  *types.Reaction `json:"reaction,omitempty"`
	Member    *types.ChatMember `json:"member,omitempty"`
}

func Now() time.Time {
	return time.Now().UTC()
}

func NoErrOK(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message",
		},
	}
}

func ErrNotChatMember(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusForbidden,
			Error:        "not a member of this chat",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}
