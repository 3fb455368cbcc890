package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"

	"github.com/meridian-cms/meridian-cms/internal/shared"
)

// Messages surfaced verbatim in the back office.
const (
	msgDuplicateName = "A role with this name already exists"
	msgModifySystem  = "Cannot modify system roles"
	msgDeleteSystem  = "Cannot delete system roles"
	msgRoleNotFound  = "Role not found"
	msgAuthRequired  = "Authentication required"
)

var roleNamePattern = regexp.MustCompile(`^[A-Za-z0-9 -]+$`)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	GetByName(ctx context.Context, name string) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	Delete(ctx context.Context, id int64) error
	CountAssignedUsers(ctx context.Context, roleID int64) (int, error)
}

// Service handles the role lifecycle: create, update, delete, clone. It is
// the only writer of role records.
type Service struct {
	repo     RepositoryPort
	cache    *ListingCache
	logger   *slog.Logger
	validate *validator.Validate
	fold     cases.Caser
	now      func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, cache *ListingCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	validate := validator.New()
	_ = validate.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
		return roleNamePattern.MatchString(fl.Field().String())
	})
	return &Service{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		validate: validate,
		fold:     cases.Fold(),
		now:      time.Now,
	}
}

// List returns all roles through the listing cache.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.cache.GetOrLoad(ctx, s.repo.List)
}

// Get fetches a single role.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, shared.NotFound(msgRoleNotFound)
		}
		return Role{}, err
	}
	return role, nil
}

// Create validates and inserts a new non-system role owned by the caller.
func (s *Service) Create(ctx context.Context, callerID int64, input RoleInput) (Role, error) {
	if callerID <= 0 {
		return Role{}, shared.Unauthorized(msgAuthRequired)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validateInput(input.Name, input.Description); err != nil {
		return Role{}, err
	}
	if err := s.checkNameAvailable(ctx, input.Name, 0); err != nil {
		return Role{}, err
	}

	now := s.now().UTC()
	role := Role{
		Name:         input.Name,
		Description:  input.Description,
		Permissions:  input.Permissions.Normalize(),
		IsSystemRole: false,
		CreatedBy:    callerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ctx, role)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Role{}, shared.Conflict(msgDuplicateName)
		}
		return Role{}, err
	}
	s.invalidateListing(ctx)
	s.logger.Info("role created", slog.Int64("role_id", created.ID), slog.String("name", created.Name), slog.Int64("created_by", callerID))
	return created, nil
}

// Update overwrites a non-system role's name, description and permissions.
func (s *Service) Update(ctx context.Context, callerID, roleID int64, input RoleInput) (Role, error) {
	if callerID <= 0 {
		return Role{}, shared.Unauthorized(msgAuthRequired)
	}
	existing, err := s.repo.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, shared.NotFound(msgRoleNotFound)
		}
		return Role{}, err
	}
	if existing.IsSystemRole {
		return Role{}, shared.Forbidden(msgModifySystem)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validateInput(input.Name, input.Description); err != nil {
		return Role{}, err
	}
	if err := s.checkNameAvailable(ctx, input.Name, roleID); err != nil {
		return Role{}, err
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Permissions = input.Permissions.Normalize()
	existing.UpdatedAt = s.now().UTC()
	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Role{}, shared.Conflict(msgDuplicateName)
		}
		if errors.Is(err, ErrNotFound) {
			return Role{}, shared.NotFound(msgRoleNotFound)
		}
		return Role{}, err
	}
	s.invalidateListing(ctx)
	s.logger.Info("role updated", slog.Int64("role_id", roleID), slog.Int64("updated_by", callerID))
	return updated, nil
}

// Delete removes a role that is not a system role and has no assigned users.
func (s *Service) Delete(ctx context.Context, callerID, roleID int64) error {
	if callerID <= 0 {
		return shared.Unauthorized(msgAuthRequired)
	}
	existing, err := s.repo.Get(ctx, roleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.NotFound(msgRoleNotFound)
		}
		return err
	}
	if existing.IsSystemRole {
		return shared.Forbidden(msgDeleteSystem)
	}
	count, err := s.repo.CountAssignedUsers(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.DependencyExists(fmt.Sprintf("Cannot delete role: %d user(s) are still assigned to it. Reassign them to another role first.", count))
	}
	if err := s.repo.Delete(ctx, roleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.NotFound(msgRoleNotFound)
		}
		return err
	}
	s.invalidateListing(ctx)
	s.logger.Info("role deleted", slog.Int64("role_id", roleID), slog.Int64("deleted_by", callerID))
	return nil
}

// Clone creates a new role carrying an independent copy of the source's
// permission matrix.
func (s *Service) Clone(ctx context.Context, callerID, sourceRoleID int64, input CloneInput) (Role, error) {
	if callerID <= 0 {
		return Role{}, shared.Unauthorized(msgAuthRequired)
	}
	source, err := s.repo.Get(ctx, sourceRoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Role{}, shared.NotFound(msgRoleNotFound)
		}
		return Role{}, err
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validateInput(input.Name, input.Description); err != nil {
		return Role{}, err
	}
	if err := s.checkNameAvailable(ctx, input.Name, 0); err != nil {
		return Role{}, err
	}

	now := s.now().UTC()
	copy := Role{
		Name:         input.Name,
		Description:  input.Description,
		Permissions:  source.Permissions.Clone(),
		IsSystemRole: false,
		CreatedBy:    callerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ctx, copy)
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Role{}, shared.Conflict(msgDuplicateName)
		}
		return Role{}, err
	}
	s.invalidateListing(ctx)
	s.logger.Info("role cloned", slog.Int64("source_role_id", sourceRoleID), slog.Int64("role_id", created.ID), slog.Int64("created_by", callerID))
	return created, nil
}

// GetUserCount returns the number of principals assigned to the role.
func (s *Service) GetUserCount(ctx context.Context, roleID int64) (int, error) {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, shared.NotFound(msgRoleNotFound)
		}
		return 0, err
	}
	return s.repo.CountAssignedUsers(ctx, roleID)
}

// validateInput returns the first violation as a user-facing message.
func (s *Service) validateInput(name, description string) error {
	input := RoleInput{Name: name, Description: description}
	err := s.validate.StructPartial(input, "Name", "Description")
	if err == nil {
		return nil
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) || len(violations) == 0 {
		return shared.ValidationError("Invalid role input")
	}
	switch violations[0].Field() {
	case "Name":
		return shared.ValidationError("Role name must be 2-50 characters using only letters, digits, spaces and hyphens")
	case "Description":
		return shared.ValidationError("Description must be at most 500 characters")
	default:
		return shared.ValidationError("Invalid role input")
	}
}

// checkNameAvailable enforces case-insensitive uniqueness, excluding the role
// being updated. The pre-check-then-insert sequence is racy under concurrent
// creators; the unique index on lower(name) is the actual guarantee and the
// duplicate-key path above maps to the same conflict message.
func (s *Service) checkNameAvailable(ctx context.Context, name string, excludeID int64) error {
	existing, err := s.repo.GetByName(ctx, s.fold.String(name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if excludeID != 0 && existing.ID == excludeID {
		return nil
	}
	return shared.Conflict(msgDuplicateName)
}

func (s *Service) invalidateListing(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
