package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arbiterhq/arbiter/internal/platform/db"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	// FindByEmail loads an account by login email with roles and their
	// permissions eagerly populated.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByID loads an account by id with the same eager population.
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// BumpTokenVersion increments the account's token version, invalidating
	// all previously issued tokens.
	BumpTokenVersion(ctx context.Context, id uuid.UUID) error
	// RecordLogin persists login metadata for auditing.
	RecordLogin(ctx context.Context, userID uuid.UUID, ip, ua string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool db.Querier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool db.Querier) *PGRepository {
	return &PGRepository{pool: pool}
}

const accountQuery = `
SELECT u.id, u.name, u.email, u.password_hash, u.token_version,
       r.id, r.name, p.name
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
WHERE `

// FindByEmail fetches an account with its full role/permission closure.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	rows, err := r.pool.Query(ctx, accountQuery+`u.email = $1 ORDER BY r.name, p.name`, email)
	if err != nil {
		return nil, err
	}
	return scanAccount(rows)
}

// FindByID fetches an account with its full role/permission closure.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	rows, err := r.pool.Query(ctx, accountQuery+`u.id = $1 ORDER BY r.name, p.name`, id)
	if err != nil {
		return nil, err
	}
	return scanAccount(rows)
}

// BumpTokenVersion increments the stored token version by one.
func (r *PGRepository) BumpTokenVersion(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET token_version = token_version + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordLogin inserts a login audit row.
func (r *PGRepository) RecordLogin(ctx context.Context, userID uuid.UUID, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_audit (id, user_id, ip, user_agent, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, ip, ua, time.Now().UTC())
	return err
}

// scanAccount folds the joined rows into one account with populated roles.
func scanAccount(rows pgx.Rows) (*Account, error) {
	defer rows.Close()

	var account *Account
	roleIdx := make(map[uuid.UUID]int)

	for rows.Next() {
		var (
			id           uuid.UUID
			name, email  string
			passwordHash string
			tokenVersion int
			roleID       uuid.NullUUID
			roleName     *string
			permName     *string
		)
		if err := rows.Scan(&id, &name, &email, &passwordHash, &tokenVersion, &roleID, &roleName, &permName); err != nil {
			return nil, err
		}
		if account == nil {
			account = &Account{
				Principal: Principal{
					ID:           id,
					Name:         name,
					Email:        email,
					TokenVersion: tokenVersion,
					Roles:        []PrincipalRole{},
				},
				PasswordHash: passwordHash,
			}
		}
		if !roleID.Valid {
			continue
		}
		idx, ok := roleIdx[roleID.UUID]
		if !ok {
			account.Roles = append(account.Roles, PrincipalRole{
				ID:          roleID.UUID,
				Name:        deref(roleName),
				Permissions: []string{},
			})
			idx = len(account.Roles) - 1
			roleIdx[roleID.UUID] = idx
		}
		if permName != nil {
			account.Roles[idx].Permissions = append(account.Roles[idx].Permissions, *permName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.ErrNotFound
	}
	return account, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ Repository = (*PGRepository)(nil)
