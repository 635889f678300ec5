package permissions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arbiterhq/arbiter/internal/platform/db"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Repository defines persistence operations for permissions.
type Repository interface {
	Create(ctx context.Context, p Permission) (Permission, error)
	List(ctx context.Context, offset, limit int) ([]Permission, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id uuid.UUID) (Permission, error)
	Update(ctx context.Context, p Permission) (Permission, error)
	// Delete removes a permission unless any role still references it.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const permissionColumns = `id, name, COALESCE(description, ''), COALESCE(module, ''), created_at, updated_at`

// Create inserts a new permission. A name clash surfaces as ErrConflict.
func (r *PGRepository) Create(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (id, name, description, module) VALUES ($1, $2, $3, $4)
		 RETURNING `+permissionColumns,
		uuid.New(), p.Name, p.Description, p.Module)
	created, err := scanPermission(row)
	if err != nil {
		return Permission{}, mapUniqueViolation(err)
	}
	return created, nil
}

// List returns a page of permissions ordered by name ascending.
func (r *PGRepository) List(ctx context.Context, offset, limit int) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions ORDER BY name ASC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perms := []Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// Count returns the total number of permissions.
func (r *PGRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Get fetches a permission by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id)
	p, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// Update overwrites name/description/module for an existing permission.
func (r *PGRepository) Update(ctx context.Context, p Permission) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE permissions SET name = $2, description = $3, module = $4, updated_at = NOW()
		 WHERE id = $1 RETURNING `+permissionColumns,
		p.ID, p.Name, p.Description, p.Module)
	updated, err := scanPermission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// Delete removes a permission. The reverse lookup into role assignments and
// the delete run in one transaction so a concurrent role write cannot slip
// between check and delete.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM role_permissions WHERE permission_id = $1)`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: permission is assigned to role(s), unassign before deleting", shared.ErrConflict)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Module, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// mapUniqueViolation converts a unique-index violation into ErrConflict.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: permission already exists", shared.ErrConflict)
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
