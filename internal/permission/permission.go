package permission

// Permission names a capability gating one kind of chat operation. The
// set below is a versioned contract with the permissions table seed in
// db/migrations: both change together.
type Permission string

const (
	MessageTextCreate  Permission = "message.text.create"
	MessageMediaCreate Permission = "message.media.create"
	UserAdd            Permission = "user.add"
	MessageDelete      Permission = "message.delete"
	MessageEdit        Permission = "message.edit"
	UserRoleChange     Permission = "user.role.change"
	RoleEdit           Permission = "role.edit"
	ChangeAvatar       Permission = "change.avatar"
)

// All returns every declared permission.
func All() []Permission {
	return []Permission{
		MessageTextCreate,
		MessageMediaCreate,
		UserAdd,
		MessageDelete,
		MessageEdit,
		UserRoleChange,
		RoleEdit,
		ChangeAvatar,
	}
}

// Reserved names of the roles seeded into every new chat.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// DefaultRolePermissions maps each default role to the permission set it
// is created with. The owner holds every permission.
var DefaultRolePermissions = map[string][]Permission{
	RoleOwner: All(),
	RoleAdmin: {
		MessageTextCreate,
		MessageMediaCreate,
		UserAdd,
		MessageDelete,
		MessageEdit,
		UserRoleChange,
		ChangeAvatar,
	},
	RoleMember: {
		MessageTextCreate,
		MessageMediaCreate,
	},
}
