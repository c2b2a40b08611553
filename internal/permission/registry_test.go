package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-multichat/server/internal/database"
)

func seededRows() []database.Permission {
	perms := All()
	rows := make([]database.Permission, 0, len(perms))
	for i, p := range perms {
		rows = append(rows, database.Permission{Id: i + 1, Name: string(p)})
	}
	return rows
}

func TestResolve(t *testing.T) {
	tcases := []struct {
		name    string
		rows    []database.Permission
		rowsErr error
		wantErr string
	}{
		{
			name: "exact match resolves",
			rows: seededRows(),
		},
		{
			name:    "missing row fails",
			rows:    seededRows()[:len(All())-1],
			wantErr: "permission mismatch",
		},
		{
			name:    "undeclared row fails",
			rows:    append(seededRows(), database.Permission{Id: 99, Name: "message.nuke"}),
			wantErr: "not declared",
		},
		{
			name:    "storage error propagates",
			rowsErr: errors.New("db down"),
			wantErr: "list permissions",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockChatRepository{}
			defer mockRepo.AssertExpectations(t)

			mockRepo.On("ListPermissions").Return(tc.rows, tc.rowsErr).Once()

			r := NewRegistry(mockRepo)
			err := r.Resolve()

			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr, "expected resolve failure reason")
				return
			}

			require.NoError(t, err)

			id, err := r.Id(MessageTextCreate)
			assert.NoError(t, err)
			assert.Equal(t, 1, id, "expected id from seed order")
		})
	}
}

func TestIdBeforeResolve(t *testing.T) {
	r := NewRegistry(&database.MockChatRepository{})

	_, err := r.Id(MessageTextCreate)
	assert.Error(t, err, "expected failure before resolve")
}

func TestIds(t *testing.T) {
	mockRepo := &database.MockChatRepository{}
	mockRepo.On("ListPermissions").Return(seededRows(), nil).Once()

	r := NewRegistry(mockRepo)
	require.NoError(t, r.Resolve())

	ids, err := r.Ids([]Permission{MessageTextCreate, MessageMediaCreate})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids, "expected ids in request order")

	_, err = r.Ids([]Permission{"message.nuke"})
	assert.Error(t, err, "expected unknown permission to fail")
}

func TestDefaultRolePermissions(t *testing.T) {
	assert.ElementsMatch(t, All(), DefaultRolePermissions[RoleOwner], "owner holds every permission")
	assert.NotContains(t, DefaultRolePermissions[RoleAdmin], RoleEdit, "admin cannot edit roles")
	assert.ElementsMatch(t,
		[]Permission{MessageTextCreate, MessageMediaCreate},
		DefaultRolePermissions[RoleMember],
		"member can only send messages")
}
