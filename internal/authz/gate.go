package authz

import (
	"fmt"

	"github.com/meridian-cms/meridian-cms/internal/permission"
)

// Decision is the outcome of an access check. The same decision drives both
// server-side guards and UI visibility so the two can never disagree.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a negative decision with a human-readable reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Check is the single enforcement gate. Preconditions run in order and the
// first failure wins: inactive accounts are denied before any role logic,
// super admins are allowed before any matrix lookup, everything else resolves
// through the effective matrix. Ambiguous or missing data always denies.
func Check(p Principal, roleMatrix permission.Matrix, module permission.Module, action permission.Action) Decision {
	if p.Status != StatusActive {
		return Deny("account not active")
	}
	if p.RoleKind == RoleKindSuperAdmin {
		return Allow()
	}
	if !HasPermission(p, roleMatrix, module, action) {
		return Deny(fmt.Sprintf("missing permission %s.%s", module, action))
	}
	return Allow()
}
