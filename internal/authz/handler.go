package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/platform/httpx"
)

// Handler exposes authorization queries to the back office UI.
type Handler struct {
	middleware Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(middleware Middleware) *Handler {
	return &Handler{middleware: middleware}
}

// MountRoutes registers authorization query routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireAuthenticated())
		r.Get("/modules", h.listModules)
		r.Get("/check", h.check)
	})
}

// listModules returns the modules the caller may at least view, used by the
// UI to build navigation.
func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	modules := h.middleware.Viewable(r.Context(), p)
	if modules == nil {
		modules = []permission.Module{}
	}
	httpx.Success(w, http.StatusOK, map[string]any{"modules": modules})
}

// check answers a single allow/deny query so screens can gate individual
// controls with the exact decision the server will enforce.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	module := permission.Module(r.URL.Query().Get("module"))
	action := permission.Action(r.URL.Query().Get("action"))
	if !permission.KnownModule(module) || !permission.KnownAction(action) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown module or action")
		return
	}
	decision := h.middleware.Decide(r.Context(), p, module, action)
	httpx.Success(w, http.StatusOK, map[string]any{
		"allowed": decision.Allowed,
		"reason":  decision.Reason,
	})
}
