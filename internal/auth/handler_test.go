package auth_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/internal/auth"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandlerFixture(t *testing.T) (*auth.Handler, *auth.Service, *stubRepo, *auth.Account) {
	t.Helper()
	account := testAccount(t, "user@test.local", "correctpass",
		auth.PrincipalRole{Name: "Editor", Permissions: []string{"post.create", "post.edit"}},
	)
	repo := newStubRepo(account)
	svc := auth.NewService(repo, auth.NewTokenManager("test-secret", 24*time.Hour))
	return auth.NewHandler(discardLogger(), svc, false), svc, repo, account
}

func sessionCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == auth.TokenCookie {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestHandlerLogin(t *testing.T) {
	handler, _, repo, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)

	cookie := sessionCookie(t, res)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 86400, cookie.MaxAge)
	assert.NotEmpty(t, cookie.Value)

	var body struct {
		User struct {
			Email       string   `json:"email"`
			Permissions []string `json:"permissions"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "user@test.local", body.User.Email)
	assert.Equal(t, []string{"post.create", "post.edit"}, body.User.Permissions)
	assert.Equal(t, cookie.Value, body.Token)
	assert.Equal(t, 1, repo.logins)
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	handler, _, _, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"user@test.local","password":"wrongpass"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid credentials", body.Message)
}

func TestHandlerLoginValidation(t *testing.T) {
	handler, _, _, _ := newHandlerFixture(t)

	for _, payload := range []string{
		`{"email":"not-an-email","password":"x"}`,
		`{"email":"user@test.local"}`,
		`{`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.Login(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "payload %s", payload)
	}
}

func TestHandlerLogout(t *testing.T) {
	handler, _, repo, account := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &account.Principal))
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	res := rec.Result()
	require.Equal(t, http.StatusOK, res.StatusCode)
	cookie := sessionCookie(t, res)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.Equal(t, 1, repo.accounts[account.ID].TokenVersion)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "logged out successfully", body.Message)
}

func TestHandlerMe(t *testing.T) {
	handler, _, _, account := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.ContextWithPrincipal(req.Context(), &account.Principal))
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User struct {
			ID    string `json:"_id"`
			Name  string `json:"name"`
			Email string `json:"email"`
			Roles []struct {
				Name        string   `json:"name"`
				Permissions []string `json:"permissions"`
			} `json:"roles"`
			Permissions []string `json:"permissions"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, account.ID.String(), body.User.ID)
	assert.Equal(t, "user@test.local", body.User.Email)
	require.Len(t, body.User.Roles, 1)
	assert.Equal(t, "Editor", body.User.Roles[0].Name)
	assert.Equal(t, []string{"post.create", "post.edit"}, body.User.Permissions)
}

func TestHandlerMeWithoutPrincipal(t *testing.T) {
	handler, _, _, _ := newHandlerFixture(t)

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
