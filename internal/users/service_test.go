package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arbiterhq/arbiter/internal/shared"
	"github.com/arbiterhq/arbiter/internal/users"
)

type stubRepo struct {
	created struct {
		name, email, hash string
		roleIDs           []uuid.UUID
	}
	updated struct {
		id     uuid.UUID
		fields users.UpdateFields
		calls  int
	}
	knownRoles map[uuid.UUID]struct{}
}

func (s *stubRepo) Create(ctx context.Context, name, email, passwordHash string, roleIDs []uuid.UUID) (users.User, error) {
	s.created.name = name
	s.created.email = email
	s.created.hash = passwordHash
	s.created.roleIDs = roleIDs
	return users.User{ID: uuid.New(), Name: name, Email: email}, nil
}

func (s *stubRepo) Get(ctx context.Context, id uuid.UUID) (users.User, error) {
	return users.User{}, shared.ErrNotFound
}

func (s *stubRepo) List(ctx context.Context) ([]users.User, error) {
	return nil, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, fields users.UpdateFields) (users.User, error) {
	s.updated.id = id
	s.updated.fields = fields
	s.updated.calls++
	return users.User{ID: id}, nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *stubRepo) CountRoles(ctx context.Context, ids []uuid.UUID) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := s.knownRoles[id]; ok {
			count++
		}
	}
	return count, nil
}

func (s *stubRepo) ExistingRoles(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	existing := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.knownRoles[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

func TestRegister(t *testing.T) {
	roleID := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{roleID: {}}}
	svc := users.NewService(repo)

	user, err := svc.Register(context.Background(), users.RegisterInput{
		Name:     "New User",
		Email:    "new@test.local",
		Password: "secret",
		Roles:    users.RoleList{roleID.String(), "not-a-uuid"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "new@test.local" {
		t.Fatalf("unexpected user %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.created.hash), []byte("secret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if len(repo.created.roleIDs) != 1 || repo.created.roleIDs[0] != roleID {
		t.Fatalf("expected invalid role ids dropped, got %v", repo.created.roleIDs)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	svc := users.NewService(&stubRepo{})
	cases := []users.RegisterInput{
		{Email: "a@test.local", Password: "x"},
		{Name: "A", Password: "x"},
		{Name: "A", Email: "a@test.local"},
		{Name: "  ", Email: "a@test.local", Password: "x"},
	}
	for i, input := range cases {
		if _, err := svc.Register(context.Background(), input); !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestRegisterDropsUnknownRoles(t *testing.T) {
	known := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{known: {}}}
	svc := users.NewService(repo)

	_, err := svc.Register(context.Background(), users.RegisterInput{
		Name:     "New User",
		Email:    "new@test.local",
		Password: "secret",
		Roles:    users.RoleList{known.String(), uuid.New().String()},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(repo.created.roleIDs) != 1 || repo.created.roleIDs[0] != known {
		t.Fatalf("expected unknown role ids dropped, got %v", repo.created.roleIDs)
	}
}

func TestRegisterBareStringRoles(t *testing.T) {
	roleID := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{roleID: {}}}
	svc := users.NewService(repo)

	var input users.RegisterInput
	payload := `{"name":"A","email":"a@test.local","password":"x","roles":"` + roleID.String() + `"}`
	if err := json.Unmarshal([]byte(payload), &input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(repo.created.roleIDs) != 1 || repo.created.roleIDs[0] != roleID {
		t.Fatalf("expected bare string role normalized, got %v", repo.created.roleIDs)
	}
}

func TestUpdateRehashesPassword(t *testing.T) {
	repo := &stubRepo{}
	svc := users.NewService(repo)
	id := uuid.New()
	password := "newsecret"

	if _, err := svc.Update(context.Background(), id, users.UpdateInput{Password: &password}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updated.fields.PasswordHash == nil {
		t.Fatal("expected password hash set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*repo.updated.fields.PasswordHash), []byte(password)); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if repo.updated.fields.Name != nil || repo.updated.fields.Roles != nil {
		t.Fatalf("expected untouched fields nil, got %+v", repo.updated.fields)
	}
}

func TestUpdateFiltersInvalidRoles(t *testing.T) {
	roleID := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{roleID: {}}}
	svc := users.NewService(repo)
	roles := users.RoleList{roleID.String(), "bogus", uuid.New().String()}

	if _, err := svc.Update(context.Background(), uuid.New(), users.UpdateInput{Roles: &roles}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if repo.updated.fields.Roles == nil {
		t.Fatal("expected roles set")
	}
	got := *repo.updated.fields.Roles
	if len(got) != 1 || got[0] != roleID {
		t.Fatalf("expected malformed and unknown role ids dropped, got %v", got)
	}
}

func TestAssignRoles(t *testing.T) {
	known := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{known: {}}}
	svc := users.NewService(repo)
	id := uuid.New()

	if _, err := svc.AssignRoles(context.Background(), id, []string{known.String()}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if repo.updated.calls != 1 || repo.updated.id != id {
		t.Fatalf("expected update call for %s, got %+v", id, repo.updated)
	}
}

func TestAssignRolesRejectsUnknown(t *testing.T) {
	known := uuid.New()
	repo := &stubRepo{knownRoles: map[uuid.UUID]struct{}{known: {}}}
	svc := users.NewService(repo)

	_, err := svc.AssignRoles(context.Background(), uuid.New(), []string{known.String(), uuid.New().String()})
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if repo.updated.calls != 0 {
		t.Fatal("expected no update on validation failure")
	}

	_, err = svc.AssignRoles(context.Background(), uuid.New(), []string{"not-a-uuid"})
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Fatalf("expected invalid input for malformed id, got %v", err)
	}
}
