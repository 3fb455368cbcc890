package users

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

func TestToAssignmentMapsKinds(t *testing.T) {
	roleID := int64(9)

	assignment, err := roleAssignmentRequest{RoleKind: "super_admin"}.toAssignment()
	require.NoError(t, err)
	require.Equal(t, authz.RoleKindSuperAdmin, assignment.Kind())

	assignment, err = roleAssignmentRequest{RoleKind: "custom_role", RoleID: &roleID}.toAssignment()
	require.NoError(t, err)
	require.Equal(t, authz.RoleKindCustomRole, assignment.Kind())
	require.Equal(t, roleID, *assignment.RoleID())

	override := permission.Matrix{permission.ModuleMedia: {permission.ActionUpload: true}}
	assignment, err = roleAssignmentRequest{RoleKind: "user", CustomPermissions: override}.toAssignment()
	require.NoError(t, err)
	require.Equal(t, authz.RoleKindUser, assignment.Kind())
	require.True(t, assignment.CustomPermissions().Allows(permission.ModuleMedia, permission.ActionUpload))

	assignment, err = roleAssignmentRequest{RoleKind: "user"}.toAssignment()
	require.NoError(t, err)
	require.Nil(t, assignment.RoleID())
	require.Nil(t, assignment.CustomPermissions())
}

func TestToAssignmentRejectsMismatchedPayloads(t *testing.T) {
	roleID := int64(9)
	override := permission.Matrix{permission.ModuleMedia: {permission.ActionUpload: true}}

	cases := []roleAssignmentRequest{
		{RoleKind: "super_admin", RoleID: &roleID},
		{RoleKind: "super_admin", CustomPermissions: override},
		{RoleKind: "custom_role"},
		{RoleKind: "custom_role", RoleID: &roleID, CustomPermissions: override},
		{RoleKind: "user", RoleID: &roleID},
		{RoleKind: "owner"},
		{RoleKind: ""},
	}
	for _, req := range cases {
		_, err := req.toAssignment()
		require.Equal(t, shared.CodeValidation, shared.CodeOf(err), "request %+v", req)
	}
}
