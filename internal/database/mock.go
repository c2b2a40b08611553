package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) UpdateAccountAvatar(userId int, avatarUrl string) (User, error) {
	args := m.Called(userId, avatarUrl)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) ListAccounts() ([]User, error) {
	args := m.Called()
	return args.Get(0).([]User), args.Error(1)
}
func (m *MockChatRepository) ListPermissions() ([]Permission, error) {
	args := m.Called()
	return args.Get(0).([]Permission), args.Error(1)
}
func (m *MockChatRepository) CreateChat(params CreateChatParams) (Chat, error) {
	args := m.Called(params)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) GetChatById(chatId int) (Chat, error) {
	args := m.Called(chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) ListChats() ([]Chat, error) {
	args := m.Called()
	return args.Get(0).([]Chat), args.Error(1)
}
func (m *MockChatRepository) ListChatsForUser(userId int) ([]Chat, error) {
	args := m.Called(userId)
	return args.Get(0).([]Chat), args.Error(1)
}
func (m *MockChatRepository) UpdateChatAvatar(chatId int, avatarUrl string) (Chat, error) {
	args := m.Called(chatId, avatarUrl)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockChatRepository) AddChatMember(chatId, userId, roleId int) (ChatMember, error) {
	args := m.Called(chatId, userId, roleId)
	return args.Get(0).(ChatMember), args.Error(1)
}
func (m *MockChatRepository) IsChatMember(chatId, userId int) bool {
	args := m.Called(chatId, userId)
	return args.Bool(0)
}
func (m *MockChatRepository) GetChatMembers(chatId int) ([]ChatMemberInfo, error) {
	args := m.Called(chatId)
	return args.Get(0).([]ChatMemberInfo), args.Error(1)
}
func (m *MockChatRepository) CreateRoleWithPermissions(chatId int, name string, permissionIds []int) (Role, error) {
	args := m.Called(chatId, name, permissionIds)
	return args.Get(0).(Role), args.Error(1)
}
func (m *MockChatRepository) UpdateMemberRole(chatId, userId, roleId int) (ChatMember, error) {
	args := m.Called(chatId, userId, roleId)
	return args.Get(0).(ChatMember), args.Error(1)
}
func (m *MockChatRepository) GetRolesByChat(chatId int) ([]Role, error) {
	args := m.Called(chatId)
	return args.Get(0).([]Role), args.Error(1)
}
func (m *MockChatRepository) GetRoleByName(chatId int, name string) (Role, error) {
	args := m.Called(chatId, name)
	return args.Get(0).(Role), args.Error(1)
}
func (m *MockChatRepository) GetChatPermissions(chatId, userId int) ([]string, error) {
	args := m.Called(chatId, userId)
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockChatRepository) CreateTextMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) CreateMediaMessage(media CreateMediaParams, params CreateMessageParams) (Message, error) {
	args := m.Called(media, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessageById(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) UpdateMessageContent(messageId int, content string) (Message, error) {
	args := m.Called(messageId, content)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) DeleteMessage(messageId int) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetMessages(chatId, limit int, before *time.Time) ([]Message, error) {
	args := m.Called(chatId, limit, before)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockChatRepository) UpsertReaction(messageId, userId int, code string) (Reaction, error) {
	args := m.Called(messageId, userId, code)
	return args.Get(0).(Reaction), args.Error(1)
}
func (m *MockChatRepository) DeleteReaction(messageId, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
