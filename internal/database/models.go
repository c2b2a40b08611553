package database

import "time"

const (
	ChatTypePrivate = "private"
	ChatTypeGroup   = "group"
)

type Permission struct {
	Id   int
	Name string
}

type Role struct {
	Id          int
	ChatId      int
	Name        string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Chat struct {
	Id          int
	Name        string
	DisplayName string
	Type        string
	AvatarUrl   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type User struct {
	Id           int
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	AvatarUrl    string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChatMember is the (chat, user) relation. RoleId is zero while the
// membership has no role, which is only legal inside the chat-creation
// transaction before the owner role is attached.
type ChatMember struct {
	ChatId    int
	UserId    int
	RoleId    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMemberInfo is a membership joined with its user and role name,
// as returned by member listings.
type ChatMemberInfo struct {
	User     User
	RoleName string
}

type Message struct {
	Id        int
	ChatId    int
	UserId    int
	IsText    bool
	Content   string
	MediaId   string
	IsEdited  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	Sender     User
	SenderRole string
}

type Media struct {
	Id        string
	Mimetype  string
	Width     int
	Height    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Reaction struct {
	MessageId int
	UserId    int
	Code      string
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	DisplayName  string
	PasswordHash string
}

// RoleSeed describes one default role created alongside a new chat.
type RoleSeed struct {
	Name          string
	PermissionIds []int
}

type CreateChatParams struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	CreatorId   int    `json:"-"`

	// DefaultRoles are created inside the chat-creation transaction.
	// The role named OwnerRoleName is attached to the creator's membership.
	DefaultRoles  []RoleSeed `json:"-"`
	OwnerRoleName string     `json:"-"`
}

type CreateMessageParams struct {
	ChatId  int
	UserId  int
	Content string
}

type CreateMediaParams struct {
	Key      string
	Mimetype string
	Width    int
	Height   int
}
