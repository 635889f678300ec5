package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Service handles user business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput carries fields for creating a user account. Roles accepts a
// bare identifier or a set, normalized by RoleList.
type RegisterInput struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    RoleList `json:"roles"`
}

// Register creates a user account storing a one-way hash of the password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return User{}, fmt.Errorf("%w: all fields required", shared.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	roleIDs, err := s.usableRoles(ctx, input.Roles)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, name, email, string(hash), roleIDs)
}

// usableRoles normalizes role references to the ids of existing roles.
// Malformed and unknown references are dropped, not rejected.
func (s *Service) usableRoles(ctx context.Context, roles RoleList) ([]uuid.UUID, error) {
	ids := roles.ValidIDs()
	if len(ids) == 0 {
		return ids, nil
	}
	return s.repo.ExistingRoles(ctx, ids)
}

// Get fetches a user by id with roles populated.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// List returns all users with the full closure populated.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// UpdateInput carries partial fields for updating a user. A present Roles
// field is normalized to a set of identifiers and filtered to existing
// roles; malformed and unknown references are dropped, not rejected.
type UpdateInput struct {
	Name     *string   `json:"name"`
	Email    *string   `json:"email"`
	Password *string   `json:"password"`
	Roles    *RoleList `json:"roles"`
}

// Update applies a partial update. A present password is re-hashed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (User, error) {
	fields := UpdateFields{Name: input.Name, Email: input.Email}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		hashed := string(hash)
		fields.PasswordHash = &hashed
	}
	if input.Roles != nil {
		ids, err := s.usableRoles(ctx, *input.Roles)
		if err != nil {
			return User{}, err
		}
		fields.Roles = &ids
	}
	return s.repo.Update(ctx, id, fields)
}

// Delete removes a user. There is no referential guard on user deletion.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AssignRoles replaces the user's role set after validating every referenced
// role exists, by count match against the distinct resolved roles.
func (s *Service) AssignRoles(ctx context.Context, id uuid.UUID, roles []string) (User, error) {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, value := range roles {
		roleID, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil {
			return User{}, fmt.Errorf("%w: some roles are invalid", shared.ErrInvalidInput)
		}
		ids = append(ids, roleID)
	}
	count, err := s.repo.CountRoles(ctx, ids)
	if err != nil {
		return User{}, err
	}
	if count != len(ids) {
		return User{}, fmt.Errorf("%w: some roles are invalid", shared.ErrInvalidInput)
	}
	return s.repo.Update(ctx, id, UpdateFields{Roles: &ids})
}
