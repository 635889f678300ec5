package posts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arbiterhq/arbiter/internal/platform/db"
	"github.com/arbiterhq/arbiter/internal/shared"
)

// Repository defines persistence operations for posts.
type Repository interface {
	Create(ctx context.Context, p Post) (Post, error)
	List(ctx context.Context) ([]Post, error)
	Get(ctx context.Context, id uuid.UUID) (Post, error)
	Update(ctx context.Context, p Post) (Post, error)
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

const postColumns = `id, title, content, author_id, created_at, updated_at`

// Create inserts a new post.
func (r *PGRepository) Create(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO posts (id, title, content, author_id) VALUES ($1, $2, $3, $4) RETURNING `+postColumns,
		uuid.New(), p.Title, p.Content, p.Author)
	return scanPost(row)
}

// List returns all posts, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Get fetches a post by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// Update overwrites title and content.
func (r *PGRepository) Update(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE posts SET title = $2, content = $3, updated_at = NOW() WHERE id = $1 RETURNING `+postColumns,
		p.ID, p.Title, p.Content)
	updated, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return updated, nil
}

// Delete removes a post.
func (r *PGRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var _ Repository = (*PGRepository)(nil)
