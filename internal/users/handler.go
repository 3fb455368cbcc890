package users

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

// Handler manages user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authz authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authz}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(permission.ModuleUsers, permission.ActionView))
		r.Get("/", h.listUsers)
		r.Get("/{userID}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(permission.ModuleUsers, permission.ActionCreate))
		r.Post("/invite", h.inviteUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(permission.ModuleUsers, permission.ActionAssign))
		r.Put("/{userID}/role-assignment", h.setRoleAssignment)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	principals, pagination, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"users": principals, "pagination": pagination})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, p)
}

func (h *Handler) inviteUser(w http.ResponseWriter, r *http.Request) {
	var input InviteInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	created, err := h.service.Invite(r.Context(), h.callerID(r), input)
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusCreated, created)
}

type roleAssignmentRequest struct {
	RoleKind          string            `json:"roleKind"`
	RoleID            *int64            `json:"roleId"`
	CustomPermissions permission.Matrix `json:"customPermissions"`
}

func (h *Handler) setRoleAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req roleAssignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	assignment, err := req.toAssignment()
	if err != nil {
		httpx.Failure(w, err)
		return
	}
	if err := h.service.SetRoleAssignment(r.Context(), h.callerID(r), id, assignment); err != nil {
		httpx.Failure(w, err)
		return
	}
	httpx.Success(w, http.StatusOK, map[string]any{"updated": true})
}

// toAssignment maps the wire shape onto the tagged variant, rejecting
// payloads whose role kind and fields disagree.
func (req roleAssignmentRequest) toAssignment() (RoleAssignment, error) {
	switch authz.RoleKind(req.RoleKind) {
	case authz.RoleKindSuperAdmin:
		if req.RoleID != nil || req.CustomPermissions != nil {
			return RoleAssignment{}, shared.ValidationError("A super admin carries neither a role nor custom permissions")
		}
		return AssignSuperAdmin(), nil
	case authz.RoleKindCustomRole:
		if req.RoleID == nil {
			return RoleAssignment{}, shared.ValidationError("A role id is required for the custom_role kind")
		}
		if req.CustomPermissions != nil {
			return RoleAssignment{}, shared.ValidationError("Custom permissions cannot be combined with an assigned role")
		}
		return AssignRole(*req.RoleID), nil
	case authz.RoleKindUser:
		if req.RoleID != nil {
			return RoleAssignment{}, shared.ValidationError("A role id is only valid for the custom_role kind")
		}
		if req.CustomPermissions != nil {
			return AssignCustomPermissions(req.CustomPermissions), nil
		}
		return AssignNone(), nil
	default:
		return RoleAssignment{}, shared.ValidationError("Unknown role kind")
	}
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Failure(w, shared.ValidationError("Invalid user id"))
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
