package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/arbiterhq/arbiter/internal/shared"
)

// Service wraps authentication and session-token business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Tokens exposes the token manager, used by handlers for cookie lifetimes.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Login validates email/password credentials and issues a session token.
// Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(account.ID, account.TokenVersion)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Logout increments the principal's token version so tokens issued before
// this point stop verifying. Repeated calls keep incrementing and succeed.
func (s *Service) Logout(ctx context.Context, id uuid.UUID) error {
	return s.repo.BumpTokenVersion(ctx, id)
}

// Resolve verifies a raw token and loads the principal it identifies with
// the full role/permission closure. Any failure is ErrUnauthenticated.
func (s *Service) Resolve(ctx context.Context, raw string) (*Principal, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if claims.TokenVersion != account.TokenVersion {
		return nil, shared.ErrUnauthenticated
	}
	principal := account.Principal
	return &principal, nil
}

// AuditLogin records login metadata, best effort.
func (s *Service) AuditLogin(ctx context.Context, userID uuid.UUID, ip, ua string) error {
	return s.repo.RecordLogin(ctx, userID, ip, ua)
}
