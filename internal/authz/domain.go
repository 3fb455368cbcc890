package authz

import "github.com/meridian-cms/meridian-cms/internal/permission"

// Status is the lifecycle state of a principal account.
type Status string

// Account states. Only active principals can ever be granted a permission.
const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusPending Status = "pending"
)

// RoleKind describes how a principal acquires permissions.
type RoleKind string

const (
	// RoleKindSuperAdmin bypasses the permission matrix entirely.
	RoleKindSuperAdmin RoleKind = "super_admin"
	// RoleKindCustomRole draws permissions from an assigned role.
	RoleKindCustomRole RoleKind = "custom_role"
	// RoleKindUser has no role; at most a custom permission override applies.
	RoleKindUser RoleKind = "user"
)

// Principal is the authorization view of an account as supplied by the
// session provider. The engine only reads it.
type Principal struct {
	ID                int64
	Status            Status
	RoleKind          RoleKind
	AssignedRoleID    *int64
	CustomPermissions permission.Matrix
}
