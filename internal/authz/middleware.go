package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridian-cms/meridian-cms/internal/observability"
	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/platform/httpx"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// ErrRoleNotFound is returned by RoleSource implementations when the
// referenced role no longer exists. The gate treats it as "no permissions",
// not as a server error.
var ErrRoleNotFound = errors.New("authz: role not found")

// PrincipalSource loads the authorization view of an account.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, id int64) (Principal, error)
}

// RoleSource loads the permission matrix of a role.
type RoleSource interface {
	RolePermissions(ctx context.Context, roleID int64) (permission.Matrix, error)
}

// Middleware wires the access gate into HTTP handlers.
type Middleware struct {
	Principals PrincipalSource
	Roles      RoleSource
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Require guards a route behind the access gate for one module/action pair.
// The resolved principal is stored in the request context for handlers that
// need the caller identity.
func (m Middleware) Require(module permission.Module, action permission.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.currentPrincipal(w, r)
			if !ok {
				return
			}
			decision := m.Decide(r.Context(), p, module, action)
			if !decision.Allowed {
				httpx.RespondError(w, shared.Forbidden(decision.Reason))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuthenticated guards a route behind sign-in and an active account
// without demanding a specific permission.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.currentPrincipal(w, r)
			if !ok {
				return
			}
			if p.Status != StatusActive {
				httpx.RespondError(w, shared.Forbidden("account not active"))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// Decide loads the principal's role matrix as needed and runs the gate,
// recording the outcome metric. Store failures deny; the gate never fails
// open.
func (m Middleware) Decide(ctx context.Context, p Principal, module permission.Module, action permission.Action) Decision {
	roleMatrix := m.roleMatrix(ctx, p)
	decision := Check(p, roleMatrix, module, action)
	m.Metrics.ObserveAuthzDecision(string(module), string(action), decision.Allowed)
	return decision
}

// Viewable returns the modules the principal may at least view.
func (m Middleware) Viewable(ctx context.Context, p Principal) []permission.Module {
	if p.Status != StatusActive {
		return nil
	}
	return ViewableModules(p, m.roleMatrix(ctx, p))
}

func (m Middleware) roleMatrix(ctx context.Context, p Principal) permission.Matrix {
	if p.RoleKind == RoleKindSuperAdmin || p.AssignedRoleID == nil {
		return nil
	}
	matrix, err := m.Roles.RolePermissions(ctx, *p.AssignedRoleID)
	if err != nil {
		if !errors.Is(err, ErrRoleNotFound) && m.Logger != nil {
			m.Logger.Error("authz load role permissions", slog.Int64("role_id", *p.AssignedRoleID), slog.Any("error", err))
		}
		return nil
	}
	return matrix
}

func (m Middleware) currentPrincipal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.Unauthorized("sign in required"))
		return Principal{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		httpx.RespondError(w, shared.Unauthorized("sign in required"))
		return Principal{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse principal id", slog.String("value", raw))
		}
		httpx.RespondError(w, shared.Unauthorized("sign in required"))
		return Principal{}, false
	}
	p, err := m.Principals.PrincipalByID(r.Context(), id)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz load principal", slog.Int64("principal_id", id), slog.Any("error", err))
		}
		httpx.RespondError(w, shared.Unauthorized("sign in required"))
		return Principal{}, false
	}
	return p, true
}
