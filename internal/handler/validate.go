package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
)

// ValidateHandler is the one public API surface besides login: the
// client product calls it to check a license key. Valid keys get a
// short-lived signed token the client can cache between checks.
type ValidateHandler struct {
	keys   *store.LicenseKeyStore
	secret []byte
	logger *slog.Logger
}

func NewValidateHandler(keys *store.LicenseKeyStore, secret []byte, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{keys: keys, secret: secret, logger: logger}
}

type validateRequest struct {
	Key string `json:"key"`
}

type validateResponse struct {
	Valid   bool              `json:"valid"`
	Reason  string            `json:"reason,omitempty"`
	License *model.LicenseKey `json:"license,omitempty"`
	Token   string            `json:"token,omitempty"`
}

type licenseClaims struct {
	LicenseKey string  `json:"license_key"`
	Type       string  `json:"type"`
	UserEmail  string  `json:"user"`
	MaxAmount  float64 `json:"max_amount"`
	jwt.RegisteredClaims
}

func (h *ValidateHandler) signToken(lk *model.LicenseKey, now time.Time) (string, error) {
	// Token lifetime is capped by the key's own expiry.
	exp := now.Add(24 * time.Hour)
	if lk.ExpiresAt.Before(exp) {
		exp = lk.ExpiresAt
	}
	claims := licenseClaims{
		LicenseKey: lk.Key,
		Type:       lk.Type,
		UserEmail:  lk.UserEmail,
		MaxAmount:  lk.MaxAmount,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "flasherpro-console",
			Subject:   lk.UserEmail,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
}

func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "license key required")
		return
	}

	lk, err := h.keys.GetByKey(req.Key)
	if err != nil {
		h.logger.Error("validate lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lk == nil {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "unknown key"})
		return
	}

	now := time.Now()
	if lk.Expired(now) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "license expired"})
		return
	}
	if !lk.Active(now) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false, Reason: "license suspended"})
		return
	}

	token, err := h.signToken(lk, now)
	if err != nil {
		h.logger.Error("sign license token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		Valid:   true,
		License: lk,
		Token:   token,
	})
}
