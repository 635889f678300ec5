package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/shared"
)

type stubRepo struct {
	accounts map[uuid.UUID]*auth.Account
	logins   int
}

func newStubRepo(accounts ...*auth.Account) *stubRepo {
	repo := &stubRepo{accounts: make(map[uuid.UUID]*auth.Account)}
	for _, account := range accounts {
		repo.accounts[account.ID] = account
	}
	return repo
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	for _, account := range s.accounts {
		if account.Email == email {
			copied := *account
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *stubRepo) BumpTokenVersion(ctx context.Context, id uuid.UUID) error {
	account, ok := s.accounts[id]
	if !ok {
		return shared.ErrNotFound
	}
	account.TokenVersion++
	return nil
}

func (s *stubRepo) RecordLogin(ctx context.Context, userID uuid.UUID, ip, ua string) error {
	s.logins++
	return nil
}

func testAccount(t *testing.T, email, password string, roles ...auth.PrincipalRole) *auth.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.Account{
		Principal: auth.Principal{
			ID:    uuid.New(),
			Name:  "Test User",
			Email: email,
			Roles: roles,
		},
		PasswordHash: string(hash),
	}
}

func newService(repo auth.Repository) *auth.Service {
	return auth.NewService(repo, auth.NewTokenManager("test-secret", time.Hour))
}

func TestLoginSuccess(t *testing.T) {
	account := testAccount(t, "user@test.local", "correctpass")
	svc := newService(newStubRepo(account))

	got, token, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != account.ID {
		t.Fatalf("expected account %s, got %s", account.ID, got.ID)
	}

	principal, err := svc.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.ID != account.ID {
		t.Fatalf("token resolved to %s, expected %s", principal.ID, account.ID)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	account := testAccount(t, "user@test.local", "correctpass")
	svc := newService(newStubRepo(account))

	_, _, wrongPassword := svc.Login(context.Background(), "user@test.local", "wrongpass")
	_, _, unknownEmail := svc.Login(context.Background(), "ghost@test.local", "correctpass")

	if !errors.Is(wrongPassword, shared.ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected invalid credentials, got %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, shared.ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected invalid credentials, got %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("rejections differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestLogoutInvalidatesToken(t *testing.T) {
	account := testAccount(t, "user@test.local", "correctpass")
	repo := newStubRepo(account)
	svc := newService(repo)

	_, token, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(context.Background(), account.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected stale token rejection, got %v", err)
	}

	// Logout keeps incrementing and always succeeds.
	if err := svc.Logout(context.Background(), account.ID); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
	if repo.accounts[account.ID].TokenVersion != 2 {
		t.Fatalf("expected token version 2, got %d", repo.accounts[account.ID].TokenVersion)
	}
}

func TestResolveVanishedPrincipal(t *testing.T) {
	account := testAccount(t, "user@test.local", "correctpass")
	repo := newStubRepo(account)
	svc := newService(repo)

	_, token, err := svc.Login(context.Background(), "user@test.local", "correctpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	delete(repo.accounts, account.ID)

	if _, err := svc.Resolve(context.Background(), token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for vanished principal, got %v", err)
	}
}

func TestPermissionFlattening(t *testing.T) {
	principal := auth.Principal{
		Roles: []auth.PrincipalRole{
			{Name: "Editor", Permissions: []string{"post.create", "post.edit"}},
			{Name: "Moderator", Permissions: []string{"post.edit", "post.delete"}},
		},
	}
	got := principal.PermissionNames()
	want := []string{"post.create", "post.edit", "post.delete"}
	if len(got) != len(want) {
		t.Fatalf("expected %d permissions, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
