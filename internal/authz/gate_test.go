package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-cms/meridian-cms/internal/permission"
)

func TestCheckInactiveDeniedBeforeEverything(t *testing.T) {
	for _, status := range []Status{StatusBlocked, StatusPending} {
		p := Principal{ID: 1, Status: status, RoleKind: RoleKindSuperAdmin}
		decision := Check(p, nil, permission.ModulePages, permission.ActionView)
		require.False(t, decision.Allowed)
		require.Equal(t, "account not active", decision.Reason)
	}
}

func TestCheckActiveSuperAdminAlwaysAllowed(t *testing.T) {
	p := Principal{ID: 1, Status: StatusActive, RoleKind: RoleKindSuperAdmin}
	for _, module := range permission.Modules() {
		for _, action := range permission.Actions() {
			require.True(t, Check(p, nil, module, action).Allowed)
		}
	}
}

func TestCheckDeniedReasonNamesModuleAndAction(t *testing.T) {
	p := Principal{ID: 1, Status: StatusActive, RoleKind: RoleKindUser}

	decision := Check(p, nil, permission.ModulePages, permission.ActionDelete)

	require.False(t, decision.Allowed)
	require.Equal(t, "missing permission pages.delete", decision.Reason)
}

func TestCheckGrantedByRoleMatrix(t *testing.T) {
	roleMatrix := permission.Matrix{
		permission.ModulePages: {permission.ActionView: true, permission.ActionCreate: true},
	}
	p := Principal{ID: 1, Status: StatusActive, RoleKind: RoleKindCustomRole, AssignedRoleID: int64ptr(5)}

	require.True(t, Check(p, roleMatrix, permission.ModulePages, permission.ActionCreate).Allowed)
	require.False(t, Check(p, roleMatrix, permission.ModulePages, permission.ActionDelete).Allowed)
}
