package permission

import (
	"fmt"

	"github.com/go-multichat/server/internal/database"
)

// Registry holds the name-to-id mapping for the fixed permission set.
// Resolve populates it once at startup; afterwards the map is read-only
// and safe for unsynchronized concurrent reads.
type Registry struct {
	db  database.ChatRepository
	ids map[Permission]int
}

func NewRegistry(db database.ChatRepository) *Registry {
	return &Registry{db: db}
}

// Resolve loads the permission rows and verifies they are a 1:1 match
// with the declared enumeration. Any mismatch means the database seed
// and the code have diverged and the process must not serve traffic.
// Resolve is idempotent.
func (r *Registry) Resolve() error {
	rows, err := r.db.ListPermissions()
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}

	declared := All()
	ids := make(map[Permission]int, len(declared))
	for _, row := range rows {
		p := Permission(row.Name)
		if !isDeclared(p) {
			return fmt.Errorf("permission %q exists in storage but is not declared", row.Name)
		}
		ids[p] = row.Id
	}

	if len(ids) != len(declared) {
		return fmt.Errorf("permission mismatch: %d declared, %d resolved", len(declared), len(ids))
	}

	r.ids = ids
	return nil
}

// Id returns the storage id of a permission name. It fails fast if the
// registry was never resolved.
func (r *Registry) Id(p Permission) (int, error) {
	if r.ids == nil {
		return 0, fmt.Errorf("permission registry not resolved")
	}

	id, ok := r.ids[p]
	if !ok {
		return 0, fmt.Errorf("unknown permission %q", p)
	}

	return id, nil
}

// Ids resolves a list of permission names in one call.
func (r *Registry) Ids(perms []Permission) ([]int, error) {
	ids := make([]int, 0, len(perms))
	for _, p := range perms {
		id, err := r.Id(p)
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func isDeclared(p Permission) bool {
	for _, d := range All() {
		if d == p {
			return true
		}
	}
	return false
}
