package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"log/slog"

	"sharelooped/internal/identity"
	"sharelooped/internal/profile"
	"sharelooped/internal/session"
)

func newTestAuthMiddleware(t *testing.T) (func(http.Handler) http.Handler, *SessionHandler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := identity.NewProvider(identity.NewMemoryRepository(), time.Hour)
	manager := session.NewManager(provider, profile.NewMemoryStore(), session.NewHub(nil), nil, logger)
	handler := NewSessionHandler(manager, time.Hour, "development", logger)
	return newAuthMiddleware(manager, logger), handler
}

func TestAuthMiddlewareRejectsMissingCookie(t *testing.T) {
	mw, _ := newTestAuthMiddleware(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareRejectsUnknownToken(t *testing.T) {
	mw, _ := newTestAuthMiddleware(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "bogus"})
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareInjectsIdentity(t *testing.T) {
	mw, sessionHandler := newTestAuthMiddleware(t)
	cookie := registerAccount(t, sessionHandler, "neo@example.com")

	var seen *session.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if seen == nil || seen.Email != "neo@example.com" {
		t.Fatalf("expected injected identity, got %+v", seen)
	}
}

func TestIdentityFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ident := IdentityFromContext(req.Context()); ident != nil {
		t.Fatalf("expected nil identity, got %+v", ident)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	newSecurityHeadersMiddleware("production")(next).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("unexpected X-Content-Type-Options %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("unexpected X-Frame-Options %q", got)
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatal("expected HSTS header in production")
	}

	devRec := httptest.NewRecorder()
	newSecurityHeadersMiddleware("development")(next).ServeHTTP(devRec, req)
	if devRec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("expected no HSTS header in development")
	}
}

func TestSlogMiddlewarePreservesFlusher(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer lost http.Flusher")
		}
		flusher.Flush()
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	newSlogMiddleware(logger)(next).ServeHTTP(rec, req)

	if !rec.Flushed {
		t.Fatal("Flush did not reach the underlying writer")
	}
}

func TestSlogMiddlewareRecordsStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	newSlogMiddleware(logger)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("middleware altered status: %d", rec.Code)
	}
}
