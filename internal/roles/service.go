package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Service handles role business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries fields for creating a role.
type CreateInput struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Create registers a role after validating every referenced permission
// exists. Creation is all-or-nothing: nothing persists when validation fails.
func (s *Service) Create(ctx context.Context, input CreateInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name is required", shared.ErrInvalidInput)
	}
	ids, err := s.resolvePermissionIDs(ctx, input.Permissions)
	if err != nil {
		return Role{}, err
	}
	return s.repo.Create(ctx, name, ids)
}

// List returns all roles with permissions populated.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.Get(ctx, id)
}

// UpdateInput carries partial fields for updating a role. A nil Permissions
// slice leaves the assignment set untouched.
type UpdateInput struct {
	Name        *string   `json:"name"`
	Permissions *[]string `json:"permissions"`
}

// Update applies a partial update with the same validations as Create.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Role, error) {
	var name *string
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return Role{}, fmt.Errorf("%w: role name is required", shared.ErrInvalidInput)
		}
		name = &trimmed
	}
	var ids []uuid.UUID
	if input.Permissions != nil {
		resolved, err := s.resolvePermissionIDs(ctx, *input.Permissions)
		if err != nil {
			return Role{}, err
		}
		ids = resolved
		if ids == nil {
			ids = []uuid.UUID{}
		}
	}
	return s.repo.Update(ctx, id, name, ids)
}

// Delete removes a role unless a user still references it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// resolvePermissionIDs parses the requested ids and validates them by count
// match: the number of distinct existing permissions must equal the number of
// requested ids.
func (s *Service) resolvePermissionIDs(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: one or more permission ids are invalid", shared.ErrInvalidInput)
		}
		ids = append(ids, id)
	}
	count, err := s.repo.CountPermissions(ctx, ids)
	if err != nil {
		return nil, err
	}
	if count != len(ids) {
		return nil, fmt.Errorf("%w: one or more permission ids are invalid", shared.ErrInvalidInput)
	}
	return ids, nil
}
