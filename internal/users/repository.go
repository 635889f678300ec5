package users

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

// UpdateFields carries a partial user update. Nil pointers leave the field
// untouched; a nil Roles pointer leaves role assignments untouched.
type UpdateFields struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Roles        *[]uuid.UUID
}

// Repository defines persistence operations for users.
type Repository interface {
	Create(ctx context.Context, name, email, passwordHash string, roleIDs []uuid.UUID) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (User, error)
	// Delete is unconditional, there is no referential guard on users.
	Delete(ctx context.Context, id uuid.UUID) error
	// CountRoles counts distinct existing roles among the ids.
	CountRoles(ctx context.Context, ids []uuid.UUID) (int, error)
	// ExistingRoles filters the ids to those resolving to existing roles.
	ExistingRoles(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a user with its role assignments in one transaction.
func (r *PGRepository) Create(ctx context.Context, name, email, passwordHash string, roleIDs []uuid.UUID) (User, error) {
	id := uuid.New()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`,
			id, name, email, passwordHash); err != nil {
			return mapUserError(err)
		}
		return attachRoles(ctx, tx, id, roleIDs)
	})
	if err != nil {
		return User{}, err
	}
	return r.Get(ctx, id)
}

const userClosureQuery = `
SELECT u.id, u.name, u.email, u.password_hash, u.token_version, u.created_at, u.updated_at,
       r.id, r.name, p.name
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id`

// Get fetches a user by id with roles and their permissions populated.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	rows, err := r.pool.Query(ctx, userClosureQuery+` WHERE u.id = $1 ORDER BY r.name, p.name`, id)
	if err != nil {
		return User{}, err
	}
	result, err := scanUsers(rows)
	if err != nil {
		return User{}, err
	}
	if len(result) == 0 {
		return User{}, shared.ErrNotFound
	}
	return result[0], nil
}

// List returns all users with the full role/permission closure populated.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userClosureQuery+` ORDER BY u.created_at, r.name, p.name`)
	if err != nil {
		return nil, err
	}
	return scanUsers(rows)
}

// Update applies a partial update in one transaction.
func (r *PGRepository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		if fields.Name != nil {
			if _, err := tx.Exec(ctx, `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, id, *fields.Name); err != nil {
				return err
			}
		}
		if fields.Email != nil {
			if _, err := tx.Exec(ctx, `UPDATE users SET email = $2, updated_at = NOW() WHERE id = $1`, id, *fields.Email); err != nil {
				return mapUserError(err)
			}
		}
		if fields.PasswordHash != nil {
			if _, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, *fields.PasswordHash); err != nil {
				return err
			}
		}
		if fields.Roles != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
				return err
			}
			if err := attachRoles(ctx, tx, id, *fields.Roles); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = NOW() WHERE id = $1`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return r.Get(ctx, id)
}

// Delete removes a user unconditionally.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM login_audit WHERE user_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountRoles counts how many of the given ids resolve to existing roles.
func (r *PGRepository) CountRoles(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles WHERE id = ANY($1)`, ids).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExistingRoles returns the subset of ids that resolve to existing roles.
func (r *PGRepository) ExistingRoles(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing = append(existing, id)
	}
	return existing, rows.Err()
}

func attachRoles(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, roleID); err != nil {
			return mapUserError(err)
		}
	}
	return nil
}

func scanUsers(rows pgx.Rows) ([]User, error) {
	defer rows.Close()

	result := []User{}
	userIdx := make(map[uuid.UUID]int)
	roleIdx := make(map[uuid.UUID]map[uuid.UUID]int)

	for rows.Next() {
		var (
			user     User
			roleID   uuid.NullUUID
			roleName *string
			permName *string
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.TokenVersion,
			&user.CreatedAt, &user.UpdatedAt, &roleID, &roleName, &permName); err != nil {
			return nil, err
		}
		ui, ok := userIdx[user.ID]
		if !ok {
			user.Roles = []UserRole{}
			result = append(result, user)
			ui = len(result) - 1
			userIdx[user.ID] = ui
			roleIdx[user.ID] = make(map[uuid.UUID]int)
		}
		if !roleID.Valid {
			continue
		}
		ri, ok := roleIdx[user.ID][roleID.UUID]
		if !ok {
			name := ""
			if roleName != nil {
				name = *roleName
			}
			result[ui].Roles = append(result[ui].Roles, UserRole{ID: roleID.UUID, Name: name, Permissions: []string{}})
			ri = len(result[ui].Roles) - 1
			roleIdx[user.ID][roleID.UUID] = ri
		}
		if permName != nil {
			result[ui].Roles[ri].Permissions = append(result[ui].Roles[ri].Permissions, *permName)
		}
	}
	return result, rows.Err()
}

// mapUserError converts constraint violations to their domain equivalents.
func mapUserError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: user already exists", shared.ErrConflict)
		case "23503":
			return fmt.Errorf("%w: one or more role ids are invalid", shared.ErrInvalidInput)
		}
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
