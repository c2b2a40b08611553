package database

import (
	"database/sql"
	"time"
)

const messageColumns = "m.id, m.chat_id, m.user_id, m.is_text, COALESCE(m.content, ''), " +
	"COALESCE(m.media_id, ''), m.is_edited, m.created_at, m.updated_at, " +
	"u.username, COALESCE(u.display_name, ''), COALESCE(u.avatar_url, ''), COALESCE(r.name, '')"

const messageJoins = "FROM messages m " +
	"JOIN users u ON u.id = m.user_id " +
	"LEFT JOIN chat_members cm ON cm.chat_id = m.chat_id AND cm.user_id = m.user_id " +
	"LEFT JOIN roles r ON r.id = cm.role_id"

// maxMessagePageSize bounds every message page regardless of the
// requested size.
const maxMessagePageSize = 50

func scanMessage(row *sql.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.Id,
		&m.ChatId,
		&m.UserId,
		&m.IsText,
		&m.Content,
		&m.MediaId,
		&m.IsEdited,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.Sender.Username,
		&m.Sender.DisplayName,
		&m.Sender.AvatarUrl,
		&m.SenderRole,
	)
	if err != nil {
		return Message{}, translateError(err)
	}

	m.Sender.Id = m.UserId
	return m, nil
}

func getMessageById(q queryer, messageId int) (Message, error) {
	row := q.QueryRow(
		"SELECT "+messageColumns+" "+messageJoins+" WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	return scanMessage(row)
}

func (db *PgChatRepository) CreateTextMessage(params CreateMessageParams) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (chat_id, user_id, is_text, content, is_edited, created_at, updated_at) "+
			"VALUES ($1, $2, TRUE, $3, FALSE, $4, $4) RETURNING id",
		params.ChatId,
		params.UserId,
		params.Content,
		time.Now().UTC(),
	)

	var messageId int
	if err := row.Scan(&messageId); err != nil {
		return Message{}, translateError(err)
	}

	return getMessageById(db.conn, messageId)
}

// CreateMediaMessage persists the media metadata row and the message
// referencing it in a single transaction, media first, so a message
// never points at a missing media record and no orphan media row
// survives a failed message insert.
func (db *PgChatRepository) CreateMediaMessage(media CreateMediaParams, params CreateMessageParams) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(
		"INSERT INTO media (id, mimetype, width, height, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5)",
		media.Key,
		media.Mimetype,
		media.Width,
		media.Height,
		now,
	)
	if err != nil {
		err = translateError(err)
		return Message{}, err
	}

	row := tx.QueryRow(
		"INSERT INTO messages (chat_id, user_id, is_text, media_id, is_edited, created_at, updated_at) "+
			"VALUES ($1, $2, FALSE, $3, FALSE, $4, $4) RETURNING id",
		params.ChatId,
		params.UserId,
		media.Key,
		now,
	)

	var messageId int
	if err = row.Scan(&messageId); err != nil {
		err = translateError(err)
		return Message{}, err
	}

	var msg Message
	msg, err = getMessageById(tx, messageId)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgChatRepository) GetMessageById(messageId int) (Message, error) {
	return getMessageById(db.conn, messageId)
}

func (db *PgChatRepository) UpdateMessageContent(messageId int, content string) (Message, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $2, is_edited = TRUE, updated_at = $3 WHERE id = $1 RETURNING id",
		messageId,
		content,
		time.Now().UTC(),
	)

	var id int
	if err := row.Scan(&id); err != nil {
		return Message{}, translateError(err)
	}

	return getMessageById(db.conn, id)
}

// DeleteMessage hard-deletes a message and returns the deleted record's
// projection.
func (db *PgChatRepository) DeleteMessage(messageId int) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var msg Message
	msg, err = getMessageById(tx, messageId)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec("DELETE FROM message_reactions WHERE message_id = $1", messageId)
	if err != nil {
		return Message{}, translateError(err)
	}

	_, err = tx.Exec("DELETE FROM messages WHERE id = $1", messageId)
	if err != nil {
		return Message{}, translateError(err)
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// GetMessages pages the chat history newest-first. The page size is
// clamped to maxMessagePageSize and the optional before cursor returns
// only rows strictly older than it.
func (db *PgChatRepository) GetMessages(chatId, limit int, before *time.Time) ([]Message, error) {
	if limit <= 0 || limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	var (
		rows *sql.Rows
		err  error
	)
	if before != nil {
		rows, err = db.conn.Query(
			"SELECT "+messageColumns+" "+messageJoins+
				" WHERE m.chat_id = $1 AND m.created_at < $2 ORDER BY m.created_at DESC LIMIT $3",
			chatId,
			before.UTC(),
			limit,
		)
	} else {
		rows, err = db.conn.Query(
			"SELECT "+messageColumns+" "+messageJoins+
				" WHERE m.chat_id = $1 ORDER BY m.created_at DESC LIMIT $2",
			chatId,
			limit,
		)
	}
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.ChatId,
			&m.UserId,
			&m.IsText,
			&m.Content,
			&m.MediaId,
			&m.IsEdited,
			&m.CreatedAt,
			&m.UpdatedAt,
			&m.Sender.Username,
			&m.Sender.DisplayName,
			&m.Sender.AvatarUrl,
			&m.SenderRole,
		); err != nil {
			return nil, translateError(err)
		}

		m.Sender.Id = m.UserId
		messages = append(messages, m)
	}

	return messages, translateError(rows.Err())
}

// UpsertReaction stores a user's reaction to a message, replacing any
// previous reaction by the same user (last write wins).
func (db *PgChatRepository) UpsertReaction(messageId, userId int, code string) (Reaction, error) {
	row := db.conn.QueryRow(
		"INSERT INTO message_reactions (message_id, user_id, code, created_at) "+
			"VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (message_id, user_id) DO UPDATE SET code = EXCLUDED.code, created_at = EXCLUDED.created_at "+
			"RETURNING message_id, user_id, code, created_at",
		messageId,
		userId,
		code,
		time.Now().UTC(),
	)

	var r Reaction
	if err := row.Scan(&r.MessageId, &r.UserId, &r.Code, &r.CreatedAt); err != nil {
		return Reaction{}, translateError(err)
	}

	return r, nil
}

func (db *PgChatRepository) DeleteReaction(messageId, userId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2",
		messageId,
		userId,
	)
	if err != nil {
		return translateError(err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}
