package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/auth"
	"github.com/arbiterhq/arbiter/internal/rbac"
)

func managerPrincipal() *auth.Principal {
	return &auth.Principal{
		ID:    uuid.New(),
		Name:  "Manager",
		Email: "manager@test.local",
		Roles: []auth.PrincipalRole{
			{ID: uuid.New(), Name: "Manager", Permissions: []string{"post.create", "post.edit"}},
		},
	}
}

func serve(gate func(http.Handler) http.Handler, principal *auth.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if principal != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate(next).ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	mw := rbac.Middleware{}

	if rec := serve(mw.RequireRole("Manager"), managerPrincipal()); rec.Code != http.StatusNoContent {
		t.Fatalf("expected role holder admitted, got %d", rec.Code)
	}
	if rec := serve(mw.RequireRole("Admin"), managerPrincipal()); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing role, got %d", rec.Code)
	}
	if rec := serve(mw.RequireRole("Admin"), nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rec.Code)
	}
}

func TestRequirePermission(t *testing.T) {
	mw := rbac.Middleware{}

	if rec := serve(mw.RequirePermission("post.create"), managerPrincipal()); rec.Code != http.StatusNoContent {
		t.Fatalf("expected post.create admitted, got %d", rec.Code)
	}
	if rec := serve(mw.RequirePermission("post.delete"), managerPrincipal()); rec.Code != http.StatusForbidden {
		t.Fatalf("expected post.delete forbidden, got %d", rec.Code)
	}
	if rec := serve(mw.RequirePermission("post.create"), nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without principal, got %d", rec.Code)
	}
}

func TestRequirePermissionAcrossRoles(t *testing.T) {
	principal := managerPrincipal()
	principal.Roles = append(principal.Roles, auth.PrincipalRole{
		ID:          uuid.New(),
		Name:        "Moderator",
		Permissions: []string{"post.delete"},
	})

	mw := rbac.Middleware{}
	if rec := serve(mw.RequirePermission("post.delete"), principal); rec.Code != http.StatusNoContent {
		t.Fatalf("expected permission from second role admitted, got %d", rec.Code)
	}
}
