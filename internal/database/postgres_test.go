package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgChatRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PgChatRepository{conn: db}, mock
}

var chatRowColumns = []string{"id", "name", "display_name", "type", "avatar_url", "created_at", "updated_at"}

var roleJoinColumns = []string{"id", "chat_id", "name", "created_at", "updated_at", "p_id", "p_name"}

var messageRowColumns = []string{
	"id", "chat_id", "user_id", "is_text", "content", "media_id", "is_edited",
	"created_at", "updated_at", "username", "display_name", "avatar_url", "role",
}

func TestCreateChatCommitsWholeSequence(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO chats").
		WithArgs("general", sqlmock.AnyArg(), ChatTypeGroup, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(chatRowColumns).
			AddRow(1, "general", "", ChatTypeGroup, "", now, now))
	mock.ExpectExec("INSERT INTO chat_members").
		WithArgs(1, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// owner role seed
	mock.ExpectQuery("INSERT INTO roles").
		WithArgs(1, "owner", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "name", "created_at", "updated_at"}).
			AddRow(10, 1, "owner", now, now))
	mock.ExpectExec("INSERT INTO role_permissions").
		WithArgs(10, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO role_permissions").
		WithArgs(10, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT r.id, r.chat_id").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(roleJoinColumns).
			AddRow(10, 1, "owner", now, now, 1, "message.text.create").
			AddRow(10, 1, "owner", now, now, 2, "message.media.create"))

	mock.ExpectExec("UPDATE chat_members").
		WithArgs(1, 7, 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	chat, err := repo.CreateChat(CreateChatParams{
		Name:      "general",
		Type:      ChatTypeGroup,
		CreatorId: 7,
		DefaultRoles: []RoleSeed{
			{Name: "owner", PermissionIds: []int{1, 2}},
		},
		OwnerRoleName: "owner",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, chat.Id, "expected created chat id")
	assert.NoError(t, mock.ExpectationsWereMet(), "expected all statements in order")
}

func TestCreateChatRollsBackWhenOwnerRoleMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO chats").
		WillReturnRows(sqlmock.NewRows(chatRowColumns).
			AddRow(1, "general", "", ChatTypeGroup, "", now, now))
	mock.ExpectExec("INSERT INTO chat_members").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_id", "name", "created_at", "updated_at"}).
			AddRow(11, 1, "member", now, now))
	mock.ExpectQuery("SELECT r.id, r.chat_id").
		WillReturnRows(sqlmock.NewRows(roleJoinColumns).
			AddRow(11, 1, "member", now, now, nil, nil))
	mock.ExpectRollback()

	_, err := repo.CreateChat(CreateChatParams{
		Name:      "general",
		Type:      ChatTypeGroup,
		CreatorId: 7,
		DefaultRoles: []RoleSeed{
			{Name: "member", PermissionIds: nil},
		},
		OwnerRoleName: "owner",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner role", "expected missing owner role error")
	assert.NoError(t, mock.ExpectationsWereMet(), "expected rollback instead of commit")
}

func TestCreateChatRollsBackOnDuplicateName(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO chats").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "chats_name_key", Table: "chats"})
	mock.ExpectRollback()

	_, err := repo.CreateChat(CreateChatParams{
		Name:          "general",
		Type:          ChatTypeGroup,
		CreatorId:     7,
		DefaultRoles:  []RoleSeed{{Name: "owner"}},
		OwnerRoleName: "owner",
	})

	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Field, "expected constraint mapped to field")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMediaMessageCommitsBothRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO media").
		WithArgs("key-1", "image/jpeg", 640, 480, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(1, 7, "key-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectQuery("SELECT m.id, m.chat_id").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(5, 1, 7, false, "", "key-1", false, now, now, "user", "", "", "member"))
	mock.ExpectCommit()

	msg, err := repo.CreateMediaMessage(
		CreateMediaParams{Key: "key-1", Mimetype: "image/jpeg", Width: 640, Height: 480},
		CreateMessageParams{ChatId: 1, UserId: 7},
	)

	require.NoError(t, err)
	assert.Equal(t, 5, msg.Id, "expected message id")
	assert.Equal(t, "key-1", msg.MediaId, "expected media key on message")
	assert.False(t, msg.IsText, "expected media message")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMediaMessageRollsBackOnMessageFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO media").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "messages_chat_id_fkey", Table: "messages"})
	mock.ExpectRollback()

	_, err := repo.CreateMediaMessage(
		CreateMediaParams{Key: "key-1", Mimetype: "image/jpeg"},
		CreateMessageParams{ChatId: 999, UserId: 7},
	)

	assert.ErrorIs(t, err, ErrNotFound, "expected FK violation mapped to not found")
	assert.NoError(t, mock.ExpectationsWereMet(), "expected media insert rolled back")
}

func TestGetMessagesClampsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("ORDER BY m.created_at DESC LIMIT").
		WithArgs(1, maxMessagePageSize).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	msgs, err := repo.GetMessages(1, 500, nil)

	require.NoError(t, err)
	assert.Empty(t, msgs, "expected no rows")
	assert.NoError(t, mock.ExpectationsWereMet(), "expected limit clamped in query args")
}

func TestGetMessagesBeforeCursor(t *testing.T) {
	repo, mock := newMockRepo(t)
	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("m.created_at < ").
		WithArgs(1, before, 10).
		WillReturnRows(sqlmock.NewRows(messageRowColumns))

	_, err := repo.GetMessages(1, 10, &before)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "expected cursor variant of the query")
}

func TestDeleteReactionNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM message_reactions").
		WithArgs(5, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteReaction(5, 7)

	assert.ErrorIs(t, err, ErrNotFound, "expected not found for zero rows affected")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMessageRemovesReactionsFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT m.id, m.chat_id").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(messageRowColumns).
			AddRow(5, 1, 7, true, "hello", "", false, now, now, "user", "", "", "member"))
	mock.ExpectExec("DELETE FROM message_reactions").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM messages").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.DeleteMessage(5)

	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content, "expected deleted message projection")
	assert.NoError(t, mock.ExpectationsWereMet())
}
