package database

import "time"

type ChatRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	UpdateAccountAvatar(userId int, avatarUrl string) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	ListAccounts() ([]User, error)
	ListPermissions() ([]Permission, error)
	CreateChat(params CreateChatParams) (Chat, error)
	GetChatById(chatId int) (Chat, error)
	ListChats() ([]Chat, error)
	ListChatsForUser(userId int) ([]Chat, error)
	UpdateChatAvatar(chatId int, avatarUrl string) (Chat, error)
	AddChatMember(chatId, userId, roleId int) (ChatMember, error)
	IsChatMember(chatId, userId int) bool
	GetChatMembers(chatId int) ([]ChatMemberInfo, error)
	CreateRoleWithPermissions(chatId int, name string, permissionIds []int) (Role, error)
	UpdateMemberRole(chatId, userId, roleId int) (ChatMember, error)
	GetRolesByChat(chatId int) ([]Role, error)
	GetRoleByName(chatId int, name string) (Role, error)
	GetChatPermissions(chatId, userId int) ([]string, error)
	CreateTextMessage(params CreateMessageParams) (Message, error)
	CreateMediaMessage(media CreateMediaParams, params CreateMessageParams) (Message, error)
	GetMessageById(messageId int) (Message, error)
	UpdateMessageContent(messageId int, content string) (Message, error)
	DeleteMessage(messageId int) (Message, error)
	GetMessages(chatId, limit int, before *time.Time) ([]Message, error)
	UpsertReaction(messageId, userId int, code string) (Reaction, error)
	DeleteReaction(messageId, userId int) error
}
