package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/flasherpro/console/internal/model"
)

func keyPayload() map[string]any {
	return map[string]any{
		"key":        "UF-1111-2222-3333-4444",
		"status":     model.StatusActive,
		"type":       model.TypeLive,
		"user":       "buyer@example.com",
		"max_amount": 50000.0,
		"expires_at": time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
	}
}

func TestLicenseKeyCreateHandler(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created model.LicenseKey
	decodeBody(t, rec, &created)
	if created.ID == 0 || created.Key != "UF-1111-2222-3333-4444" {
		t.Errorf("created = %+v", created)
	}
}

func TestLicenseKeyCreateGenerates(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	payload := keyPayload()
	delete(payload, "key")

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", payload))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created model.LicenseKey
	decodeBody(t, rec, &created)
	if !strings.HasPrefix(created.Key, "UF-") {
		t.Errorf("generated key = %q, want UF- prefix", created.Key)
	}
}

func TestLicenseKeyCreateValidation(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	payload := keyPayload()
	payload["status"] = "frozen"
	payload["max_amount"] = -5.0
	payload["user"] = "not-an-email"

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", payload))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, rec, &resp)
	for _, field := range []string{"status", "max_amount", "user"} {
		if resp.Fields[field] == "" {
			t.Errorf("missing validation error for %q", field)
		}
	}
}

func TestLicenseKeyCreateDuplicate(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}
}

func TestLicenseKeyUpdateHandler(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))
	var created model.LicenseKey
	decodeBody(t, rec, &created)

	payload := keyPayload()
	payload["status"] = model.StatusSuspended

	req := jsonRequest(t, "PUT", "/api/license-keys/"+strconv.FormatInt(created.ID, 10), payload)
	req.SetPathValue("id", strconv.FormatInt(created.ID, 10))
	rec = httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated model.LicenseKey
	decodeBody(t, rec, &updated)
	if updated.Status != model.StatusSuspended {
		t.Errorf("status = %q, want suspended", updated.Status)
	}
}

func TestLicenseKeyUpdateNotFound(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	req := jsonRequest(t, "PUT", "/api/license-keys/999", keyPayload())
	req.SetPathValue("id", "999")
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLicenseKeyDeleteHandler(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))
	var created model.LicenseKey
	decodeBody(t, rec, &created)

	req := httptest.NewRequest("DELETE", "/api/license-keys/1", nil)
	req.SetPathValue("id", strconv.FormatInt(created.ID, 10))
	rec = httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got, err := env.keys.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Error("key still present after delete")
	}
}

func TestLicenseKeyListHandler(t *testing.T) {
	env := setupTest(t)
	h := NewLicenseKeyHandler(env.keys, env.hub, env.logger)

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, "POST", "/api/license-keys", keyPayload()))

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/license-keys", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var keys []model.LicenseKey
	decodeBody(t, rec, &keys)
	if len(keys) != 1 {
		t.Errorf("len(keys) = %d, want 1", len(keys))
	}
}
