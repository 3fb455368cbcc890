// Package authz resolves effective permissions for principals and enforces
// them at the HTTP boundary.
package authz

import "github.com/meridian-cms/meridian-cms/internal/permission"

// EffectiveMatrix picks the single authoritative permission matrix for a
// principal. When a role is attached its matrix wins outright, even when nil
// (a dangling role reference grants nothing); only role-less principals fall
// back to their own custom permissions. Sources are never merged.
//
// Super admins are short-circuited by the callers below and never reach a
// matrix lookup.
func EffectiveMatrix(p Principal, roleMatrix permission.Matrix) permission.Matrix {
	if p.AssignedRoleID != nil {
		return roleMatrix
	}
	if p.CustomPermissions != nil {
		return p.CustomPermissions
	}
	return nil
}

// HasPermission reports whether the principal may perform action on module.
// roleMatrix is the permission matrix of the principal's assigned role, nil
// when no role is attached or the role record is missing.
func HasPermission(p Principal, roleMatrix permission.Matrix, module permission.Module, action permission.Action) bool {
	if p.RoleKind == RoleKindSuperAdmin {
		return true
	}
	return EffectiveMatrix(p, roleMatrix).Allows(module, action)
}

// ViewableModules returns the modules the principal may at least view. Super
// admins see every module.
func ViewableModules(p Principal, roleMatrix permission.Matrix) []permission.Module {
	if p.RoleKind == RoleKindSuperAdmin {
		return permission.Modules()
	}
	return EffectiveMatrix(p, roleMatrix).ViewableModules()
}
