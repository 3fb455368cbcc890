package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	List(ctx context.Context, limit, offset int) ([]Principal, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (Principal, error)
	GetByEmail(ctx context.Context, email string) (Principal, error)
	CreatePending(ctx context.Context, email, name string) (Principal, error)
	SetRoleAssignment(ctx context.Context, principalID int64, assignment RoleAssignment) error
}

// RoleChecker verifies that an assigned role exists before it is attached.
type RoleChecker interface {
	RolePermissions(ctx context.Context, roleID int64) (permission.Matrix, error)
}

// InviteMailer enqueues the invitation email for a newly invited principal.
type InviteMailer interface {
	EnqueueInviteEmail(ctx context.Context, email, name string) error
}

// InviteInput carries the fields for inviting a new principal.
type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2,max=100"`
}

// Service handles principal management: listing, invitations and the role
// assignment mutation boundary.
type Service struct {
	repo     RepositoryPort
	roles    RoleChecker
	mailer   InviteMailer
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RoleChecker, mailer InviteMailer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, mailer: mailer, logger: logger, validate: validator.New()}
}

// List returns a page of principals with listing metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Principal, shared.Pagination, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	pagination := shared.NewPagination(page, perPage, total)
	principals, err := s.repo.List(ctx, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return principals, pagination, nil
}

// Get fetches a single principal.
func (s *Service) Get(ctx context.Context, id int64) (Principal, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, shared.NotFound("User not found")
		}
		return Principal{}, err
	}
	return p, nil
}

// Invite provisions a pending principal and queues the invitation email. The
// account stays pending, and therefore unauthorized everywhere, until the
// invite is accepted.
func (s *Service) Invite(ctx context.Context, callerID int64, input InviteInput) (Principal, error) {
	if callerID <= 0 {
		return Principal{}, shared.Unauthorized("Authentication required")
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return Principal{}, shared.ValidationError("A valid email and a name of 2-100 characters are required")
	}
	// Pre-check for a friendly message; the unique index on lower(email) is
	// the actual guarantee and its duplicate-key path maps below.
	if _, err := s.repo.GetByEmail(ctx, input.Email); err == nil {
		return Principal{}, shared.Conflict("A user with this email already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return Principal{}, err
	}
	created, err := s.repo.CreatePending(ctx, input.Email, input.Name)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return Principal{}, shared.Conflict("A user with this email already exists")
		}
		return Principal{}, err
	}
	if s.mailer != nil {
		if err := s.mailer.EnqueueInviteEmail(ctx, created.Email, created.Name); err != nil {
			// The account exists either way; the invite can be resent.
			s.logger.Error("enqueue invite email", slog.String("email", created.Email), slog.Any("error", err))
		}
	}
	s.logger.Info("user invited", slog.Int64("principal_id", created.ID), slog.Int64("invited_by", callerID))
	return created, nil
}

// SetRoleAssignment applies a role assignment built through the tagged
// variant constructors. Attaching a role verifies the role still exists.
func (s *Service) SetRoleAssignment(ctx context.Context, callerID, principalID int64, assignment RoleAssignment) error {
	if callerID <= 0 {
		return shared.Unauthorized("Authentication required")
	}
	if roleID := assignment.RoleID(); roleID != nil {
		if _, err := s.roles.RolePermissions(ctx, *roleID); err != nil {
			if errors.Is(err, authz.ErrRoleNotFound) {
				return shared.NotFound("Role not found")
			}
			return err
		}
	}
	if err := s.repo.SetRoleAssignment(ctx, principalID, assignment); err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.NotFound("User not found")
		}
		return err
	}
	s.logger.Info("role assignment updated",
		slog.Int64("principal_id", principalID),
		slog.String("role_kind", string(assignment.Kind())),
		slog.Int64("updated_by", callerID))
	return nil
}
