package roles

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

// Repository defines persistence operations for roles.
type Repository interface {
	Create(ctx context.Context, name string, permissionIDs []uuid.UUID) (Role, error)
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id uuid.UUID) (Role, error)
	Update(ctx context.Context, id uuid.UUID, name *string, permissionIDs []uuid.UUID) (Role, error)
	// Delete removes a role unless a user still references it.
	Delete(ctx context.Context, id uuid.UUID) error
	// CountPermissions counts distinct existing permissions among the ids.
	CountPermissions(ctx context.Context, ids []uuid.UUID) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a role with its permission assignments in one transaction.
func (r *PGRepository) Create(ctx context.Context, name string, permissionIDs []uuid.UUID) (Role, error) {
	id := uuid.New()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO roles (id, name) VALUES ($1, $2)`, id, name); err != nil {
			return mapRoleError(err)
		}
		return attachPermissions(ctx, tx, id, permissionIDs)
	})
	if err != nil {
		return Role{}, err
	}
	return r.Get(ctx, id)
}

const roleClosureQuery = `
SELECT r.id, r.name, r.created_at, r.updated_at,
       p.id, p.name, COALESCE(p.description, ''), COALESCE(p.module, '')
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id`

// List returns all roles with permissions populated.
func (r *PGRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, roleClosureQuery+` ORDER BY r.name, p.name`)
	if err != nil {
		return nil, err
	}
	return scanRoles(rows)
}

// Get fetches a role by id with permissions populated.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	rows, err := r.pool.Query(ctx, roleClosureQuery+` WHERE r.id = $1 ORDER BY p.name`, id)
	if err != nil {
		return Role{}, err
	}
	roles, err := scanRoles(rows)
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, shared.ErrNotFound
	}
	return roles[0], nil
}

// Update renames a role and/or replaces its permission assignments. A nil
// permissionIDs slice leaves assignments untouched.
func (r *PGRepository) Update(ctx context.Context, id uuid.UUID, name *string, permissionIDs []uuid.UUID) (Role, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if name != nil {
			tag, err := tx.Exec(ctx, `UPDATE roles SET name = $2, updated_at = NOW() WHERE id = $1`, id, *name)
			if err != nil {
				return mapRoleError(err)
			}
			if tag.RowsAffected() == 0 {
				return shared.ErrNotFound
			}
		} else {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return shared.ErrNotFound
			}
		}
		if permissionIDs != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
				return err
			}
			if err := attachPermissions(ctx, tx, id, permissionIDs); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a role. The reverse lookup into user assignments and the
// delete run in one transaction.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM user_roles WHERE role_id = $1)`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: role assigned to user(s), unassign first", shared.ErrConflict)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountPermissions counts how many of the given ids resolve to existing
// permissions. Duplicate ids in the input collapse, matching the distinct
// count-match validation.
func (r *PGRepository) CountPermissions(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions WHERE id = ANY($1)`, ids).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			roleID, permID); err != nil {
			return mapRoleError(err)
		}
	}
	return nil
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()

	roles := []Role{}
	idx := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			role     Role
			permID   uuid.NullUUID
			permName *string
			permDesc string
			permMod  string
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &permID, &permName, &permDesc, &permMod); err != nil {
			return nil, err
		}
		i, ok := idx[role.ID]
		if !ok {
			role.Permissions = []Permission{}
			roles = append(roles, role)
			i = len(roles) - 1
			idx[role.ID] = i
		}
		if permID.Valid {
			roles[i].Permissions = append(roles[i].Permissions, Permission{
				ID:          permID.UUID,
				Name:        derefString(permName),
				Description: permDesc,
				Module:      permMod,
			})
		}
	}
	return roles, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapRoleError converts constraint violations to their domain equivalents:
// a unique-name clash is a conflict, a dangling permission reference is
// invalid input.
func mapRoleError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: role already exists", shared.ErrConflict)
		case "23503":
			return fmt.Errorf("%w: one or more permission ids are invalid", shared.ErrInvalidInput)
		}
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
