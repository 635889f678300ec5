package posts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Service handles post business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for creating a post.
type CreateInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create stores a new post authored by the given principal.
func (s *Service) Create(ctx context.Context, author uuid.UUID, input CreateInput) (Post, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Post{}, fmt.Errorf("%w: post title is required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Post{Title: title, Content: input.Content, Author: author})
}

// List returns all posts.
func (s *Service) List(ctx context.Context) ([]Post, error) {
	return s.repo.List(ctx)
}

// Get fetches a post by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Post, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput carries partial fields for updating a post.
type UpdateInput struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Post, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return Post{}, fmt.Errorf("%w: post title is required", shared.ErrInvalidInput)
		}
		current.Title = title
	}
	if input.Content != nil {
		current.Content = *input.Content
	}
	return s.repo.Update(ctx, current)
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
