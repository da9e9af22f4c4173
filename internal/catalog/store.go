package catalog

import "context"

// Reader is the lookup surface the check engine needs on every submission.
// The redis cache wraps exactly this interface.
type Reader interface {
	// GetEquipment resolves the given ids. Missing ids are simply absent from
	// the returned map; callers decide whether absence is an error.
	GetEquipment(ctx context.Context, ids []string) (map[string]Equipment, error)

	// RoleEquipment returns the equipment allowlist for a role, sorted by name.
	RoleEquipment(ctx context.Context, roleID string) ([]Equipment, error)
}

// Store adds the administration surface on top of Reader.
type Store interface {
	Reader

	ListEquipment(ctx context.Context) ([]Equipment, error)
	CreateEquipment(ctx context.Context, eq Equipment) error
	RenameEquipment(ctx context.Context, id, name string) error
	// DeleteEquipment returns sentinel.ErrConflict when the equipment is
	// referenced by existing check items.
	DeleteEquipment(ctx context.Context, id string) error

	ListRoles(ctx context.Context) ([]Role, error)
	FindRole(ctx context.Context, id string) (*Role, error)
	CreateRole(ctx context.Context, role Role) error
	RenameRole(ctx context.Context, id, label string) error
	DeleteRole(ctx context.Context, id string) error

	AssignEquipment(ctx context.Context, roleID, equipmentID string) error
	UnassignEquipment(ctx context.Context, roleID, equipmentID string) error
}
