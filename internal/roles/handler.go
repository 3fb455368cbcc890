package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/platform/httpx"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

// MountRoutes registers role routes. Reads require roles.view, mutations
// require roles.manage_roles.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(permission.ModuleRoles, permission.ActionView))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}", h.getRole)
		r.Get("/{roleID}/user-count", h.getUserCount)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(permission.ModuleRoles, permission.ActionManageRoles))
		r.Post("/", h.createRole)
		r.Put("/{roleID}", h.updateRole)
		r.Delete("/{roleID}", h.deleteRole)
		r.Post("/{roleID}/clone", h.cloneRole)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, role)
}

func (h *Handler) getUserCount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	count, err := h.service.GetUserCount(r.Context(), id)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"count": count})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var input RoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	role, err := h.service.Create(r.Context(), h.callerID(r), input)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var input RoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	role, err := h.service.Update(r.Context(), h.callerID(r), id, input)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), h.callerID(r), id); err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) cloneRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.roleID(w, r)
	if !ok {
		return
	}
	var input CloneInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	role, err := h.service.Clone(r.Context(), h.callerID(r), id, input)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusCreated, role)
}

func (h *Handler) roleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Failure(w, shared.ValidationError("Invalid role id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) callerID(r *http.Request) int64 {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		return 0
	}
	return p.ID
}
