package database

import (
	"database/sql"
	"time"
)

func (db *PgChatRepository) ListPermissions() ([]Permission, error) {
	rows, err := db.conn.Query("SELECT id, name FROM permissions ORDER BY id")
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var permissions []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Id, &p.Name); err != nil {
			return nil, translateError(err)
		}

		permissions = append(permissions, p)
	}

	return permissions, translateError(rows.Err())
}

// CreateRoleWithPermissions inserts a role and its permission set in one
// transaction and returns the role re-read with permissions attached. A
// role is never observable without its permissions populated.
func (db *PgChatRepository) CreateRoleWithPermissions(chatId int, name string, permissionIds []int) (Role, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Role{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var role Role
	role, err = createRoleWithPermissions(tx, chatId, name, permissionIds)
	if err != nil {
		return Role{}, err
	}

	if err = tx.Commit(); err != nil {
		return Role{}, err
	}

	return role, nil
}

func createRoleWithPermissions(q queryer, chatId int, name string, permissionIds []int) (Role, error) {
	row := q.QueryRow(
		"INSERT INTO roles (chat_id, name, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $3) RETURNING id, chat_id, name, created_at, updated_at",
		chatId,
		name,
		time.Now().UTC(),
	)

	var role Role
	if err := row.Scan(&role.Id, &role.ChatId, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, translateError(err)
	}

	for _, permissionId := range permissionIds {
		if _, err := q.Exec(
			"INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)",
			role.Id,
			permissionId,
		); err != nil {
			return Role{}, translateError(err)
		}
	}

	return getRoleById(q, role.Id)
}

func getRoleById(q queryer, roleId int) (Role, error) {
	rows, err := q.Query(
		"SELECT r.id, r.chat_id, r.name, r.created_at, r.updated_at, p.id, p.name "+
			"FROM roles r "+
			"LEFT JOIN role_permissions rp ON rp.role_id = r.id "+
			"LEFT JOIN permissions p ON p.id = rp.permission_id "+
			"WHERE r.id = $1",
		roleId,
	)
	if err != nil {
		return Role{}, translateError(err)
	}

	roles, err := collectRoles(rows)
	if err != nil {
		return Role{}, err
	}

	if len(roles) == 0 {
		return Role{}, ErrNotFound
	}

	return roles[0], nil
}

func collectRoles(rows *sql.Rows) ([]Role, error) {
	defer rows.Close()

	var roles []Role
	byId := make(map[int]int)
	for rows.Next() {
		var (
			role           Role
			permissionId   sql.NullInt64
			permissionName sql.NullString
		)

		if err := rows.Scan(
			&role.Id,
			&role.ChatId,
			&role.Name,
			&role.CreatedAt,
			&role.UpdatedAt,
			&permissionId,
			&permissionName,
		); err != nil {
			return nil, translateError(err)
		}

		idx, ok := byId[role.Id]
		if !ok {
			role.Permissions = make([]Permission, 0)
			roles = append(roles, role)
			idx = len(roles) - 1
			byId[role.Id] = idx
		}

		if permissionId.Valid {
			roles[idx].Permissions = append(roles[idx].Permissions, Permission{
				Id:   int(permissionId.Int64),
				Name: permissionName.String,
			})
		}
	}

	return roles, translateError(rows.Err())
}

// UpdateMemberRole reassigns the role held by a membership. A missing
// role surfaces as ErrNotFound via the foreign-key violation, a missing
// membership via the empty update.
func (db *PgChatRepository) UpdateMemberRole(chatId, userId, roleId int) (ChatMember, error) {
	row := db.conn.QueryRow(
		"UPDATE chat_members SET role_id = $3, updated_at = $4 "+
			"WHERE chat_id = $1 AND user_id = $2 "+
			"RETURNING chat_id, user_id, role_id, created_at, updated_at",
		chatId,
		userId,
		roleId,
		time.Now().UTC(),
	)

	return scanChatMember(row)
}

func (db *PgChatRepository) GetRolesByChat(chatId int) ([]Role, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.chat_id, r.name, r.created_at, r.updated_at, p.id, p.name "+
			"FROM roles r "+
			"LEFT JOIN role_permissions rp ON rp.role_id = r.id "+
			"LEFT JOIN permissions p ON p.id = rp.permission_id "+
			"WHERE r.chat_id = $1 ORDER BY r.id",
		chatId,
	)
	if err != nil {
		return nil, translateError(err)
	}

	return collectRoles(rows)
}

func (db *PgChatRepository) GetRoleByName(chatId int, name string) (Role, error) {
	row := db.conn.QueryRow(
		"SELECT id FROM roles WHERE chat_id = $1 AND name = $2 LIMIT 1",
		chatId,
		name,
	)

	var roleId int
	if err := row.Scan(&roleId); err != nil {
		return Role{}, translateError(err)
	}

	return getRoleById(db.conn, roleId)
}

// GetChatPermissions resolves a user's effective permission names in a
// chat. A user with no membership or no role gets an empty set, not an
// error.
func (db *PgChatRepository) GetChatPermissions(chatId, userId int) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT p.name FROM chat_members cm "+
			"JOIN roles r ON r.id = cm.role_id "+
			"JOIN role_permissions rp ON rp.role_id = r.id "+
			"JOIN permissions p ON p.id = rp.permission_id "+
			"WHERE cm.chat_id = $1 AND cm.user_id = $2",
		chatId,
		userId,
	)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var permissions = make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, translateError(err)
		}

		permissions = append(permissions, name)
	}

	return permissions, translateError(rows.Err())
}
