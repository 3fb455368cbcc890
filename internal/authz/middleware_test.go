package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

type stubPrincipals struct {
	principals map[int64]Principal
}

func (s *stubPrincipals) PrincipalByID(ctx context.Context, id int64) (Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return Principal{}, errors.New("principal not found")
	}
	return p, nil
}

type stubRoles struct {
	matrices map[int64]permission.Matrix
}

func (s *stubRoles) RolePermissions(ctx context.Context, roleID int64) (permission.Matrix, error) {
	matrix, ok := s.matrices[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return matrix, nil
}

func requestWithUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/roles/", nil)
	sess := &shared.Session{}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func newTestMiddleware(principals map[int64]Principal, matrices map[int64]permission.Matrix) Middleware {
	return Middleware{
		Principals: &stubPrincipals{principals: principals},
		Roles:      &stubRoles{matrices: matrices},
	}
}

func TestRequireAllowsPermittedPrincipal(t *testing.T) {
	mw := newTestMiddleware(
		map[int64]Principal{1: {
			ID:             1,
			Status:         StatusActive,
			RoleKind:       RoleKindCustomRole,
			AssignedRoleID: int64ptr(9),
		}},
		map[int64]permission.Matrix{9: {permission.ModuleRoles: {permission.ActionView: true}}},
	)

	var sawPrincipal bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		sawPrincipal = ok && p.ID == 1
		w.WriteHeader(http.StatusOK)
	})

	res := httptest.NewRecorder()
	mw.Require(permission.ModuleRoles, permission.ActionView)(next).ServeHTTP(res, requestWithUser("1"))

	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, sawPrincipal)
}

func TestRequireDeniesMissingPermission(t *testing.T) {
	mw := newTestMiddleware(
		map[int64]Principal{1: {ID: 1, Status: StatusActive, RoleKind: RoleKindUser}},
		nil,
	)

	res := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	mw.Require(permission.ModuleRoles, permission.ActionManageRoles)(next).ServeHTTP(res, requestWithUser("1"))

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "missing permission roles.manage_roles")
}

func TestRequireDeniesInactiveAccount(t *testing.T) {
	mw := newTestMiddleware(
		map[int64]Principal{1: {ID: 1, Status: StatusBlocked, RoleKind: RoleKindSuperAdmin}},
		nil,
	)

	res := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	mw.Require(permission.ModulePages, permission.ActionView)(next).ServeHTTP(res, requestWithUser("1"))

	require.Equal(t, http.StatusForbidden, res.Code)
	require.Contains(t, res.Body.String(), "account not active")
}

func TestRequireRejectsAnonymous(t *testing.T) {
	mw := newTestMiddleware(nil, nil)

	res := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	mw.Require(permission.ModulePages, permission.ActionView)(next).ServeHTTP(res, requestWithUser(""))

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestDecideDanglingRoleDenies(t *testing.T) {
	mw := newTestMiddleware(
		map[int64]Principal{1: {
			ID:             1,
			Status:         StatusActive,
			RoleKind:       RoleKindCustomRole,
			AssignedRoleID: int64ptr(404),
		}},
		map[int64]permission.Matrix{},
	)

	decision := mw.Decide(context.Background(), Principal{
		ID:             1,
		Status:         StatusActive,
		RoleKind:       RoleKindCustomRole,
		AssignedRoleID: int64ptr(404),
	}, permission.ModulePages, permission.ActionView)

	require.False(t, decision.Allowed)
}
