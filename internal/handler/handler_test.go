package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flasherpro/console/internal/database"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

type testEnv struct {
	db        *sql.DB
	authUsers *store.AuthUserStore
	users     *store.UserStore
	sessions  *store.SessionStore
	keys      *store.LicenseKeyStore
	settings  *store.SettingsStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		db:        db,
		authUsers: store.NewAuthUserStore(db),
		users:     store.NewUserStore(db),
		sessions:  store.NewSessionStore(db),
		keys:      store.NewLicenseKeyStore(db),
		settings:  store.NewSettingsStore(db),
		hub:       ws.NewHub(logger),
		logger:    logger,
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}
