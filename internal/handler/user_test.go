package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/flasherpro/console/internal/model"
)

func newTestUserHandler(env *testEnv) *UserHandler {
	return NewUserHandler(env.users, env.authUsers, env.sessions, env.hub, env.logger)
}

func TestUserCreateAndList(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/users", map[string]string{
		"email": "new@example.com",
		"role":  model.RoleAdmin,
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created model.User
	decodeBody(t, rec, &created)
	if created.Role != model.RoleAdmin || created.DisplayName != "new@example.com" {
		t.Errorf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/users", nil))
	var users []model.User
	decodeBody(t, rec, &users)
	if len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

func TestUserCreateBadRole(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/users", map[string]string{
		"email": "new@example.com",
		"role":  "superuser",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUserGetByEmail(t *testing.T) {
	env := setupTest(t)
	if _, err := env.users.Create("known@example.com", "known", model.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}
	h := newTestUserHandler(env)

	rec := httptest.NewRecorder()
	h.GetByEmail(rec, httptest.NewRequest("GET", "/api/users/lookup?email=known@example.com", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetByEmail(rec, httptest.NewRequest("GET", "/api/users/lookup?email=ghost@example.com", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown email status = %d, want 404", rec.Code)
	}
}

func TestUserUpdateRole(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	user, err := env.users.Create("promote@example.com", "promote", model.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	req := jsonRequest(t, "PUT", "/api/users/1/role", map[string]string{"role": model.RoleAdmin})
	req.SetPathValue("id", strconv.FormatInt(user.ID, 10))
	rec := httptest.NewRecorder()
	h.UpdateRole(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated model.User
	decodeBody(t, rec, &updated)
	if updated.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", updated.Role)
	}
}

func TestUserUpdateRoleBadRole(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	user, err := env.users.Create("x@example.com", "x", model.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	req := jsonRequest(t, "PUT", "/api/users/1/role", map[string]string{"role": "superuser"})
	req.SetPathValue("id", strconv.FormatInt(user.ID, 10))
	rec := httptest.NewRecorder()
	h.UpdateRole(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUserUpdateRoleNotFound(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	req := jsonRequest(t, "PUT", "/api/users/999/role", map[string]string{"role": model.RoleUser})
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.UpdateRole(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestUserRoleDowngradeRevokesSessions(t *testing.T) {
	env := setupTest(t)
	h := newTestUserHandler(env)

	account, err := env.authUsers.Create("demoted@example.com", "hash")
	if err != nil {
		t.Fatalf("create auth user: %v", err)
	}
	user, err := env.users.Create("demoted@example.com", "demoted", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	sess, err := env.sessions.Create(account.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := env.sessions.Create(account.ID); err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := jsonRequest(t, "PUT", "/api/users/1/role", map[string]string{"role": model.RoleUser})
	req.SetPathValue("id", strconv.FormatInt(user.ID, 10))
	rec := httptest.NewRecorder()
	h.UpdateRole(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	got, err := env.sessions.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got != nil {
		t.Error("expected sessions revoked after downgrade")
	}

	var count int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id = ?`, account.ID).Scan(&count); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 0 {
		t.Errorf("session count = %d, want 0", count)
	}
}
