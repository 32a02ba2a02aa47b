package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

type LicenseKeyHandler struct {
	keys   *store.LicenseKeyStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewLicenseKeyHandler(keys *store.LicenseKeyStore, hub *ws.Hub, logger *slog.Logger) *LicenseKeyHandler {
	return &LicenseKeyHandler{keys: keys, hub: hub, logger: logger}
}

type licenseKeyRequest struct {
	Key       string  `json:"key"`
	Status    string  `json:"status"`
	Type      string  `json:"type"`
	UserEmail string  `json:"user"`
	MaxAmount float64 `json:"max_amount"`
	ExpiresAt string  `json:"expires_at"`
}

func validStatus(s string) bool {
	switch s {
	case model.StatusActive, model.StatusExpired, model.StatusSuspended:
		return true
	}
	return false
}

func validType(s string) bool {
	return s == model.TypeDemo || s == model.TypeLive
}

// validate checks the request the same way the create form does. When
// generate is true a missing key is acceptable because one will be
// generated server side.
func (req *licenseKeyRequest) validate(generate bool) (map[string]string, time.Time) {
	fields := make(map[string]string)
	var expires time.Time

	req.Key = strings.TrimSpace(req.Key)
	req.UserEmail = strings.TrimSpace(req.UserEmail)

	if req.Key == "" && !generate {
		fields["key"] = "License key is required"
	}
	if !validStatus(req.Status) {
		fields["status"] = "Status must be active, expired or suspended"
	}
	if !validType(req.Type) {
		fields["type"] = "Type must be demo or live"
	}
	if req.UserEmail == "" {
		fields["user"] = "User email is required"
	} else if !validEmail(req.UserEmail) {
		fields["user"] = "Invalid email"
	}
	if req.MaxAmount <= 0 {
		fields["max_amount"] = "Max amount must be positive"
	}
	if req.ExpiresAt == "" {
		fields["expires_at"] = "Expiry date is required"
	} else {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			fields["expires_at"] = "Expiry date must be RFC 3339"
		} else {
			expires = t
		}
	}
	return fields, expires
}

func (h *LicenseKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List()
	if err != nil {
		h.logger.Error("list license keys", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *LicenseKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	key, err := h.keys.GetByID(id)
	if err != nil {
		h.logger.Error("get license key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "license key not found")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// Create adds a license key. A request with "generate": true (query
// param) or an empty key gets a generated UF key.
func (h *LicenseKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req licenseKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	generate := r.URL.Query().Get("generate") == "true" || req.Key == ""
	fields, expires := req.validate(generate)
	if len(fields) > 0 {
		writeValidationErrors(w, fields)
		return
	}

	if generate {
		key, err := store.GenerateKey()
		if err != nil {
			h.logger.Error("generate license key", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		req.Key = key
	}

	created, err := h.keys.Create(&model.LicenseKey{
		Key:       req.Key,
		Status:    req.Status,
		Type:      req.Type,
		UserEmail: req.UserEmail,
		MaxAmount: req.MaxAmount,
		ExpiresAt: expires,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			writeError(w, http.StatusConflict, "license key already exists")
			return
		}
		h.logger.Error("create license key", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("license key created", "id", created.ID, "type", created.Type, "user", created.UserEmail)
	h.hub.Broadcast(ws.NewMessage("license_key", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *LicenseKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req licenseKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fields, expires := req.validate(false)
	if len(fields) > 0 {
		writeValidationErrors(w, fields)
		return
	}

	existing, err := h.keys.GetByID(id)
	if err != nil {
		h.logger.Error("get license key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "license key not found")
		return
	}

	updated, err := h.keys.Update(id, &model.LicenseKey{
		Key:       req.Key,
		Status:    req.Status,
		Type:      req.Type,
		UserEmail: req.UserEmail,
		MaxAmount: req.MaxAmount,
		ExpiresAt: expires,
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			writeError(w, http.StatusConflict, "license key already exists")
			return
		}
		h.logger.Error("update license key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(ws.NewMessage("license_key", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *LicenseKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.keys.GetByID(id)
	if err != nil {
		h.logger.Error("get license key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "license key not found")
		return
	}

	if err := h.keys.Delete(id); err != nil {
		h.logger.Error("delete license key", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.hub.Broadcast(ws.NewMessage("license_key", "deleted", id, nil))
	writeJSON(w, http.StatusOK, map[string]string{"message": "License key deleted"})
}
