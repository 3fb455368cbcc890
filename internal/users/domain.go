package users

import (
	"time"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
)

// Principal is an account subject to authorization checks.
type Principal struct {
	ID                int64             `json:"id"`
	Email             string            `json:"email"`
	Name              string            `json:"name"`
	Status            authz.Status      `json:"status"`
	RoleKind          authz.RoleKind    `json:"roleKind"`
	AssignedRoleID    *int64            `json:"assignedRoleId,omitempty"`
	CustomPermissions permission.Matrix `json:"customPermissions,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// RoleAssignment is the tagged variant written through the principal
// mutation boundary. The constructors below are the only way to build one,
// so role kind and its payload can never drift apart: a role id exists only
// for custom_role, a custom matrix only for a role-less user.
type RoleAssignment struct {
	kind   authz.RoleKind
	roleID *int64
	custom permission.Matrix
}

// AssignSuperAdmin grants unrestricted access.
func AssignSuperAdmin() RoleAssignment {
	return RoleAssignment{kind: authz.RoleKindSuperAdmin}
}

// AssignRole attaches a role; its matrix becomes authoritative.
func AssignRole(roleID int64) RoleAssignment {
	return RoleAssignment{kind: authz.RoleKindCustomRole, roleID: &roleID}
}

// AssignCustomPermissions attaches a per-user override matrix with no role.
func AssignCustomPermissions(m permission.Matrix) RoleAssignment {
	return RoleAssignment{kind: authz.RoleKindUser, custom: m.Normalize()}
}

// AssignNone strips role and override; the principal resolves to no
// permissions.
func AssignNone() RoleAssignment {
	return RoleAssignment{kind: authz.RoleKindUser}
}

// Kind returns the role kind of the assignment.
func (a RoleAssignment) Kind() authz.RoleKind {
	return a.kind
}

// RoleID returns the attached role id, nil unless Kind is custom_role.
func (a RoleAssignment) RoleID() *int64 {
	return a.roleID
}

// CustomPermissions returns the override matrix, nil unless set.
func (a RoleAssignment) CustomPermissions() permission.Matrix {
	return a.custom
}
