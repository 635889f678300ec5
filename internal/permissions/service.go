package permissions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Service handles permission business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for creating a permission.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Module      string `json:"module"`
}

// Create registers a new named capability.
func (s *Service) Create(ctx context.Context, input CreateInput) (Permission, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name is required", shared.ErrInvalidInput)
	}
	return s.repo.Create(ctx, Permission{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Module:      strings.TrimSpace(input.Module),
	})
}

// ListResult is a page of permissions with listing metadata.
type ListResult struct {
	Items []Permission `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Pages int          `json:"pages"`
}

// List returns permissions ordered by name with simple paging. Page is
// clamped to >= 1 and the page size capped at 100.
func (s *Service) List(ctx context.Context, page, limit int) (ListResult, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return ListResult{}, err
	}
	pg := shared.NewPagination(page, limit, total)
	items, err := s.repo.List(ctx, pg.Offset(), pg.PerPage)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: pg.Total, Page: pg.Page, Pages: pg.TotalPages}, nil
}

// Get fetches a permission by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput carries partial fields for updating a permission. Nil fields
// are left untouched.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Module      *string `json:"module"`
}

// Update applies a partial update. A rename re-checks name uniqueness.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Permission, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Permission{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Permission{}, fmt.Errorf("%w: permission name is required", shared.ErrInvalidInput)
		}
		current.Name = name
	}
	if input.Description != nil {
		current.Description = strings.TrimSpace(*input.Description)
	}
	if input.Module != nil {
		current.Module = strings.TrimSpace(*input.Module)
	}
	return s.repo.Update(ctx, current)
}

// Delete removes a permission unless a role still references it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
