package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a referenced record does not exist,
// including foreign-key violations on writes.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a uniqueness violation on Field. Callers above
// the database boundary never see raw pq error codes.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// constraintFields maps schema constraint names to the user-facing field
// reported in conflict errors.
var constraintFields = map[string]string{
	"users_username_key":     "username",
	"users_email_key":        "email",
	"chats_name_key":         "name",
	"roles_chat_id_name_key": "name",
	"chat_members_pkey":      "membership",
	"message_reactions_pkey": "reaction",
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			field, ok := constraintFields[pqErr.Constraint]
			if !ok {
				field = strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, pqErr.Table+"_"), "_key")
			}
			return &DuplicateError{Field: field}
		case pqForeignKeyViolation:
			return ErrNotFound
		}
	}

	return err
}
