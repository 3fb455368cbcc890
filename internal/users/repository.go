package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-cms/meridian-cms/internal/authz"
	"github.com/meridian-cms/meridian-cms/internal/permission"
)

var (
	// ErrNotFound indicates the requested principal does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail indicates the store rejected an email as taken.
	ErrDuplicateEmail = errors.New("users: duplicate email")
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

const principalColumns = `id, email, name, status, role_kind, assigned_role_id, custom_permissions, created_at, updated_at`

// List returns a page of principals ordered by email.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Principal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+principalColumns+` FROM principals ORDER BY email LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var principals []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return principals, nil
}

// GetByEmail fetches a principal by case-insensitive email match.
func (r *Repository) GetByEmail(ctx context.Context, email string) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE lower(email) = lower($1)`, email)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, err
	}
	return p, nil
}

// Count returns the total number of principals.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM principals`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Get fetches a principal by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Principal, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	p, err := scanPrincipal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, err
	}
	return p, nil
}

// CreatePending inserts an invited principal awaiting activation.
func (r *Repository) CreatePending(ctx context.Context, email, name string) (Principal, error) {
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO principals (email, name, status, role_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+principalColumns,
		email, name, authz.StatusPending, authz.RoleKindUser, now,
	)
	p, err := scanPrincipal(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Principal{}, ErrDuplicateEmail
		}
		return Principal{}, err
	}
	return p, nil
}

// SetRoleAssignment writes the role kind, role reference and override matrix
// in one statement so the pairing can never be half-applied.
func (r *Repository) SetRoleAssignment(ctx context.Context, principalID int64, assignment RoleAssignment) error {
	custom, err := marshalMatrix(assignment.CustomPermissions())
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE principals
		SET role_kind = $2, assigned_role_id = $3, custom_permissions = $4, updated_at = $5
		WHERE id = $1`,
		principalID, assignment.Kind(), assignment.RoleID(), custom, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PrincipalByID implements authz.PrincipalSource for the access gate.
func (r *Repository) PrincipalByID(ctx context.Context, id int64) (authz.Principal, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return authz.Principal{}, err
	}
	return authz.Principal{
		ID:                p.ID,
		Status:            p.Status,
		RoleKind:          p.RoleKind,
		AssignedRoleID:    p.AssignedRoleID,
		CustomPermissions: p.CustomPermissions,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (Principal, error) {
	var (
		p   Principal
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Status, &p.RoleKind, &p.AssignedRoleID, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Principal{}, err
	}
	if len(raw) > 0 {
		var m permission.Matrix
		if err := json.Unmarshal(raw, &m); err != nil {
			return Principal{}, fmt.Errorf("users: unmarshal custom permissions: %w", err)
		}
		p.CustomPermissions = m.Normalize()
	}
	return p, nil
}

func marshalMatrix(m permission.Matrix) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("users: marshal custom permissions: %w", err)
	}
	return data, nil
}
