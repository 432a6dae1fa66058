package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vibast-solutions/ms-go-lostfound-auth/app/entity"
	"github.com/vibast-solutions/ms-go-lostfound-auth/app/middleware"
)

type stubAuthenticator struct {
	users map[string]*entity.User
	calls int
}

func (s *stubAuthenticator) Resolve(_ context.Context, token string) *entity.User {
	s.calls++
	return s.users[token]
}

func newMiddleware() (*middleware.SessionMiddleware, *stubAuthenticator) {
	stub := &stubAuthenticator{users: map[string]*entity.User{
		"good-token": {ID: "user-1", Email: "alice@example.com"},
	}}
	return middleware.NewSessionMiddleware(stub, "session_token"), stub
}

func serve(t *testing.T, handler echo.HandlerFunc, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestResolve_NoCookie(t *testing.T) {
	m, stub := newMiddleware()

	var seen *entity.User
	rec := serve(t, m.Resolve(func(c echo.Context) error {
		seen = middleware.CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if seen != nil {
		t.Fatalf("expected anonymous request, got %+v", seen)
	}
	if stub.calls != 0 {
		t.Fatalf("expected no lookup without cookie, got %d", stub.calls)
	}
}

func TestResolve_ValidCookie(t *testing.T) {
	m, _ := newMiddleware()

	var seen *entity.User
	serve(t, m.Resolve(func(c echo.Context) error {
		seen = middleware.CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}), &http.Cookie{Name: "session_token", Value: "good-token"})

	if seen == nil || seen.ID != "user-1" {
		t.Fatalf("expected user-1, got %+v", seen)
	}
}

func TestResolve_UnknownCookieIsAnonymous(t *testing.T) {
	m, _ := newMiddleware()

	var seen *entity.User
	rec := serve(t, m.Resolve(func(c echo.Context) error {
		seen = middleware.CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}), &http.Cookie{Name: "session_token", Value: "stale"})

	if rec.Code != http.StatusOK || seen != nil {
		t.Fatalf("expected anonymous pass-through, got %d %+v", rec.Code, seen)
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	m, _ := newMiddleware()

	called := false
	rec := serve(t, m.RequireAuth(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}), &http.Cookie{Name: "session_token", Value: "stale"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler must not run for anonymous request")
	}
}

func TestRequireAuth_Allows(t *testing.T) {
	m, _ := newMiddleware()

	rec := serve(t, m.RequireAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}), &http.Cookie{Name: "session_token", Value: "good-token"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
}

func TestSessionToken(t *testing.T) {
	m, _ := newMiddleware()

	var token string
	serve(t, func(c echo.Context) error {
		token = m.SessionToken(c)
		return nil
	}, &http.Cookie{Name: "session_token", Value: "abc"})

	if token != "abc" {
		t.Fatalf("expected abc, got %q", token)
	}
}
