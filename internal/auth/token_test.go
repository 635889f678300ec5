package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/shared"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("secret", 24*time.Hour)
	id := uuid.New()

	token, err := tm.Issue(id, 3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != id.String() {
		t.Fatalf("expected subject %s, got %s", id, claims.Subject)
	}
	if claims.TokenVersion != 3 {
		t.Fatalf("expected token version 3, got %d", claims.TokenVersion)
	}
}

func TestTokenExpired(t *testing.T) {
	tm := auth.NewTokenManager("secret", -time.Minute)
	token, err := tm.Issue(uuid.New(), 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tm.Verify(token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for expired token, got %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := auth.NewTokenManager("secret-a", time.Hour)
	verifier := auth.NewTokenManager("secret-b", time.Hour)

	token, err := issuer.Issue(uuid.New(), 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for bad signature, got %v", err)
	}
}

func TestTokenMalformed(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		if _, err := tm.Verify(raw); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Fatalf("expected unauthenticated for %q, got %v", raw, err)
		}
	}
}
