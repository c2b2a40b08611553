package database

import (
	"database/sql"
	"time"
)

const userColumns = "id, username, COALESCE(email, ''), COALESCE(display_name, ''), " +
	"password_hash, COALESCE(avatar_url, ''), COALESCE(status, ''), created_at, updated_at"

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.AvatarUrl,
		&u.Status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, translateError(err)
}

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	row := db.conn.QueryRow(
		"INSERT INTO users (username, email, display_name, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING "+userColumns,
		params.Username,
		nullString(params.Email),
		nullString(params.DisplayName),
		params.PasswordHash,
		time.Now().UTC(),
	)

	return scanUser(row)
}

func (db *PgChatRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE users SET username = $2, display_name = $3, password_hash = $4, updated_at = $5 "+
			"WHERE id = $1 RETURNING "+userColumns,
		params.UserId,
		params.Username,
		nullString(params.DisplayName),
		params.PasswordHash,
		time.Now().UTC(),
	)

	return scanUser(row)
}

func (db *PgChatRepository) UpdateAccountAvatar(userId int, avatarUrl string) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE users SET avatar_url = $2, updated_at = $3 WHERE id = $1 RETURNING "+userColumns,
		userId,
		nullString(avatarUrl),
		time.Now().UTC(),
	)

	return scanUser(row)
}

func (db *PgChatRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1",
		accountId,
	)

	return scanUser(row)
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE email = $1 LIMIT 1",
		email,
	)

	return scanUser(row)
}

func (db *PgChatRepository) ListAccounts() ([]User, error) {
	rows, err := db.conn.Query("SELECT " + userColumns + " FROM users ORDER BY id")
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err = rows.Scan(
			&u.Id,
			&u.Username,
			&u.Email,
			&u.DisplayName,
			&u.PasswordHash,
			&u.AvatarUrl,
			&u.Status,
			&u.CreatedAt,
			&u.UpdatedAt,
		); err != nil {
			return nil, translateError(err)
		}

		users = append(users, u)
	}

	return users, translateError(rows.Err())
}
