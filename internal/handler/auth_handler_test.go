package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linkpulse/internal/db"
)

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	token, userID := env.signup(t, "grace-hopper")
	if token == "" {
		t.Fatal("expected an access token")
	}

	rec := env.do(t, http.MethodGet, "/auth/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var me userResponse
	decodeJSON(t, rec, &me)
	if me.ID != userID || me.Username != "grace-hopper" || me.Role != db.RoleUser {
		t.Fatalf("unexpected profile %+v", me)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("password hash leaked in response")
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestRegisterRejectsDuplicatesAndInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "duplicate-me")

	rec := env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username":  "duplicate-me",
		"firstname": "Grace",
		"lastname":  "Hopper",
		"password":  testPassword,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"username":  "tiny",
		"firstname": "Grace",
		"lastname":  "Hopper",
		"password":  testPassword,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/register", "", gin.H{"username": "missing-fields"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoginFailuresAndFormLogin(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "form-login")

	rec := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "form-login", "password": "wrong-password-1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	form := url.Values{"username": {"form-login"}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected form login to succeed, got %d: %s", res.Code, res.Body.String())
	}
	var token tokenResponse
	decodeJSON(t, res, &token)
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Fatalf("unexpected token response %+v", token)
	}
}

func TestSessionCookieAuthenticates(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "cookie-user")

	rec := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "cookie-user", "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/users/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected cookie session to authenticate, got %d", res.Code)
	}

	logout := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range cookies {
		logout.AddCookie(c)
	}
	res = httptest.NewRecorder()
	env.router.ServeHTTP(res, logout)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on logout, got %d", res.Code)
	}
}

func TestAuthRequiredRejectsMissingAndBadTokens(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Fatalf("expected WWW-Authenticate header, got %q", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "profile-owner")
	env.signup(t, "someone-else")

	rec := env.do(t, http.MethodGet, "/users", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: %d", rec.Code)
	}
	var users []userResponse
	decodeJSON(t, rec, &users)
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	rec = env.do(t, http.MethodPut, "/users", token, gin.H{"lastname": "Kay"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update self: %d %s", rec.Code, rec.Body.String())
	}
	var updated userResponse
	decodeJSON(t, rec, &updated)
	if updated.Lastname != "Kay" || updated.Firstname != "Grace" {
		t.Fatalf("expected partial update, got %+v", updated)
	}

	rec = env.do(t, http.MethodPut, "/users", token, gin.H{"username": "someone-else"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken username, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/users/abc", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/users", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete self: %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/users/"+itoa(userID), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected deleted user to be gone, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/auth/users/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected token of deleted user to be rejected, got %d", rec.Code)
	}
}
