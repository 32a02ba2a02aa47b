package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flasherpro/console/internal/auth"
	"github.com/flasherpro/console/internal/database"
	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
)

func setupAuthTest(t *testing.T) (*store.SessionStore, *store.UserStore, *store.AuthUserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db), store.NewUserStore(db), store.NewAuthUserStore(db)
}

func TestRequireAuthNoToken(t *testing.T) {
	ss, us, as := setupAuthTest(t)

	handler := RequireAuth(ss, us, as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/license-keys", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuthBearerToken(t *testing.T) {
	ss, us, as := setupAuthTest(t)

	account, _ := as.Create("a@x.com", "hash")
	us.Create("a@x.com", "A", model.RoleAdmin)
	sess, _ := ss.Create(account.ID)

	var got auth.Identity
	handler := RequireAuth(ss, us, as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/license-keys", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Email != "a@x.com" {
		t.Errorf("email = %q, want %q", got.Email, "a@x.com")
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", got.Role, model.RoleAdmin)
	}
}

func TestRequireAuthCookie(t *testing.T) {
	ss, us, as := setupAuthTest(t)

	account, _ := as.Create("a@x.com", "hash")
	us.Create("a@x.com", "A", model.RoleUser)
	sess, _ := ss.Create(account.ID)

	called := false
	handler := RequireAuth(ss, us, as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to run with valid cookie")
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Non-admin identity.
	req := httptest.NewRequest("GET", "/api/settings", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Role: model.RoleUser}))
	rec := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin status = %d, want 403", rec.Code)
	}

	// Admin identity.
	req = httptest.NewRequest("GET", "/api/settings", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Role: model.RoleAdmin}))
	rec = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}
