package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
)

var (
	// ErrNotFound indicates the requested role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateName indicates the store rejected a role name as taken.
	// This is the uniqueness guarantee; the service pre-check only exists to
	// produce a friendlier message before the insert round-trip.
	ErrDuplicateName = errors.New("roles: duplicate name")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, description, permissions, is_system_role, created_by, created_at, updated_at`

// List returns all roles ordered by name.
func (r *Repository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY lower(name)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// Get fetches a role by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// GetByName fetches a role by case-insensitive name match. The caller passes
// an already case-folded name.
func (r *Repository) GetByName(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE lower(name) = lower($1)`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, role Role) (Role, error) {
	permissions, err := marshalMatrix(role.Permissions)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, permissions, is_system_role, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+roleColumns,
		role.Name, role.Description, permissions, role.IsSystemRole, role.CreatedBy, role.CreatedAt, role.UpdatedAt,
	)
	created, err := scanRole(row)
	if err != nil {
		return Role{}, mapDuplicate(err)
	}
	return created, nil
}

// Update overwrites name, description, permissions and updated_at.
func (r *Repository) Update(ctx context.Context, role Role) (Role, error) {
	permissions, err := marshalMatrix(role.Permissions)
	if err != nil {
		return Role{}, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+roleColumns,
		role.ID, role.Name, role.Description, permissions, role.UpdatedAt,
	)
	updated, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, mapDuplicate(err)
	}
	return updated, nil
}

// Delete removes a role by ID. Returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAssignedUsers counts principals whose assigned role is the given role.
func (r *Repository) CountAssignedUsers(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals WHERE assigned_role_id = $1`, roleID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RolePermissions implements authz.RoleSource for the access gate.
func (r *Repository) RolePermissions(ctx context.Context, roleID int64) (permission.Matrix, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT permissions FROM roles WHERE id = $1`, roleID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, err
	}
	return unmarshalMatrix(raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (Role, error) {
	var (
		role Role
		raw  []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &raw, &role.IsSystemRole, &role.CreatedBy, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	matrix, err := unmarshalMatrix(raw)
	if err != nil {
		return Role{}, err
	}
	role.Permissions = matrix
	return role, nil
}

func marshalMatrix(m permission.Matrix) ([]byte, error) {
	if m == nil {
		m = permission.Matrix{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("roles: marshal permissions: %w", err)
	}
	return data, nil
}

func unmarshalMatrix(raw []byte) (permission.Matrix, error) {
	if len(raw) == 0 {
		return permission.Matrix{}, nil
	}
	var m permission.Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("roles: unmarshal permissions: %w", err)
	}
	// Stored rows predating a vocabulary change may carry retired keys.
	return m.Normalize(), nil
}

func mapDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateName
	}
	return err
}
