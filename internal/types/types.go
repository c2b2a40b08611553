package types

import (
	"time"
)

type User struct {
	Id          int       `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	AvatarUrl   string    `json:"avatar_url,omitempty"`
	Status      string    `json:"status,omitempty"`
	Password    string    `json:"-"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

type Chat struct {
	Id          int       `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	Type        string    `json:"type"`
	AvatarUrl   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// ChatMember is a user viewed through their membership in a chat,
// carrying the name of the role they hold there.
type ChatMember struct {
	User
	Role string `json:"role,omitempty"`
}

type Role struct {
	Id          int      `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

type Message struct {
	Id        int        `json:"id"`
	ChatId    int        `json:"chat_id"`
	IsText    bool       `json:"is_text"`
	Content   string     `json:"content,omitempty"`
	MediaUrl  string     `json:"media_url,omitempty"`
	IsEdited  bool       `json:"is_edited"`
	User      ChatMember `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Reaction struct {
	MessageId int       `json:"message_id"`
	UserId    int       `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}
