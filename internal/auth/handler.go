package auth

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-cms/meridian-cms/internal/platform/httpx"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Failure(w, shared.ValidationError("Invalid request body"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Failure(w, shared.ValidationError("A valid email and a password of at least 8 characters are required"))
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Failure(w, shared.Unauthorized("Invalid email or password"))
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("login without session middleware")
		httpx.Failure(w, shared.NewError(shared.CodeInternal, "session unavailable"))
		return
	}
	sess.SetUser(strconv.FormatInt(account.ID, 10))

	expiresAt := sessionExpiry(h.sessionManager)
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID, expiresAt, clientIP(r), r.UserAgent()); err != nil {
		h.logger.Error("register session", slog.Any("error", err))
	}

	h.logger.Info("login", slog.Int64("principal_id", account.ID))
	httpx.Success(w, http.StatusOK, map[string]any{
		"id":    account.ID,
		"email": account.Email,
		"name":  account.Name,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.Success(w, http.StatusOK, map[string]any{"loggedOut": true})
}

func sessionExpiry(sm *shared.SessionManager) time.Time {
	return time.Now().Add(sm.TTL())
}

// clientIP trusts RemoteAddr; the RealIP middleware has already unwrapped
// forwarding headers by the time handlers run.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
