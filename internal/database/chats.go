package database

import (
	"database/sql"
	"fmt"
	"time"
)

const chatColumns = "id, name, COALESCE(display_name, ''), type, COALESCE(avatar_url, ''), created_at, updated_at"

func scanChat(row *sql.Row) (Chat, error) {
	var c Chat
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.DisplayName,
		&c.Type,
		&c.AvatarUrl,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, translateError(err)
}

// CreateChat runs the whole chat-creation sequence in one transaction:
// the chat row, the creator's membership (no role yet), the default
// roles with their permission sets, and finally the owner-role
// assignment to the creator. A failure at any step rolls everything
// back, so a chat without an owner is never observable.
func (db *PgChatRepository) CreateChat(params CreateChatParams) (Chat, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	row := tx.QueryRow(
		"INSERT INTO chats (name, display_name, type, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING "+chatColumns,
		params.Name,
		nullString(params.DisplayName),
		params.Type,
		now,
	)

	var chat Chat
	chat, err = scanChat(row)
	if err != nil {
		return Chat{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO chat_members (chat_id, user_id, role_id, created_at, updated_at) "+
			"VALUES ($1, $2, NULL, $3, $3)",
		chat.Id,
		params.CreatorId,
		now,
	)
	if err != nil {
		return Chat{}, translateError(err)
	}

	var ownerRoleId int
	for _, seed := range params.DefaultRoles {
		var role Role
		role, err = createRoleWithPermissions(tx, chat.Id, seed.Name, seed.PermissionIds)
		if err != nil {
			return Chat{}, err
		}

		if role.Name == params.OwnerRoleName {
			ownerRoleId = role.Id
		}
	}

	if ownerRoleId == 0 {
		err = fmt.Errorf("owner role %q was not seeded", params.OwnerRoleName)
		return Chat{}, err
	}

	_, err = tx.Exec(
		"UPDATE chat_members SET role_id = $3, updated_at = $4 WHERE chat_id = $1 AND user_id = $2",
		chat.Id,
		params.CreatorId,
		ownerRoleId,
		time.Now().UTC(),
	)
	if err != nil {
		return Chat{}, translateError(err)
	}

	if err = tx.Commit(); err != nil {
		return Chat{}, err
	}

	return chat, nil
}

func (db *PgChatRepository) GetChatById(chatId int) (Chat, error) {
	row := db.conn.QueryRow(
		"SELECT "+chatColumns+" FROM chats WHERE id = $1 LIMIT 1",
		chatId,
	)

	return scanChat(row)
}

func (db *PgChatRepository) ListChats() ([]Chat, error) {
	rows, err := db.conn.Query("SELECT " + chatColumns + " FROM chats ORDER BY id")
	if err != nil {
		return nil, translateError(err)
	}

	return collectChats(rows)
}

func (db *PgChatRepository) ListChatsForUser(userId int) ([]Chat, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.name, COALESCE(c.display_name, ''), c.type, COALESCE(c.avatar_url, ''), "+
			"c.created_at, c.updated_at FROM chat_members cm "+
			"JOIN chats c ON c.id = cm.chat_id WHERE cm.user_id = $1 ORDER BY c.id",
		userId,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return collectChats(rows)
}

func collectChats(rows *sql.Rows) ([]Chat, error) {
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(
			&c.Id,
			&c.Name,
			&c.DisplayName,
			&c.Type,
			&c.AvatarUrl,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, translateError(err)
		}

		chats = append(chats, c)
	}

	return chats, translateError(rows.Err())
}

func (db *PgChatRepository) UpdateChatAvatar(chatId int, avatarUrl string) (Chat, error) {
	row := db.conn.QueryRow(
		"UPDATE chats SET avatar_url = $2, updated_at = $3 WHERE id = $1 RETURNING "+chatColumns,
		chatId,
		nullString(avatarUrl),
		time.Now().UTC(),
	)

	return scanChat(row)
}

func (db *PgChatRepository) AddChatMember(chatId, userId, roleId int) (ChatMember, error) {
	row := db.conn.QueryRow(
		"INSERT INTO chat_members (chat_id, user_id, role_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING chat_id, user_id, role_id, created_at, updated_at",
		chatId,
		userId,
		roleId,
		time.Now().UTC(),
	)

	return scanChatMember(row)
}

func scanChatMember(row *sql.Row) (ChatMember, error) {
	var m ChatMember
	var roleId sql.NullInt64
	err := row.Scan(&m.ChatId, &m.UserId, &roleId, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return ChatMember{}, translateError(err)
	}

	m.RoleId = int(roleId.Int64)
	return m, nil
}

func (db *PgChatRepository) IsChatMember(chatId, userId int) bool {
	row := db.conn.QueryRow(
		"SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2 LIMIT 1",
		chatId,
		userId,
	)

	var one int
	return row.Scan(&one) == nil
}

func (db *PgChatRepository) GetChatMembers(chatId int) ([]ChatMemberInfo, error) {
	rows, err := db.conn.Query(
		"SELECT u.id, u.username, COALESCE(u.email, ''), COALESCE(u.display_name, ''), "+
			"COALESCE(u.avatar_url, ''), COALESCE(u.status, ''), COALESCE(r.name, '') "+
			"FROM chat_members cm "+
			"JOIN users u ON u.id = cm.user_id "+
			"LEFT JOIN roles r ON r.id = cm.role_id "+
			"WHERE cm.chat_id = $1 ORDER BY u.id",
		chatId,
	)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var members []ChatMemberInfo
	for rows.Next() {
		var m ChatMemberInfo
		if err := rows.Scan(
			&m.User.Id,
			&m.User.Username,
			&m.User.Email,
			&m.User.DisplayName,
			&m.User.AvatarUrl,
			&m.User.Status,
			&m.RoleName,
		); err != nil {
			return nil, translateError(err)
		}

		members = append(members, m)
	}

	return members, translateError(rows.Err())
}
