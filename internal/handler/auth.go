package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/flasherpro/console/internal/auth"
	"github.com/flasherpro/console/internal/gate"
	"github.com/flasherpro/console/internal/middleware"
	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

type AuthHandler struct {
	authUsers *store.AuthUserStore
	users     *store.UserStore
	sessions  *store.SessionStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewAuthHandler(as *store.AuthUserStore, us *store.UserStore, ss *store.SessionStore, hub *ws.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsers: as,
		users:     us,
		sessions:  ss,
		hub:       hub,
		logger:    logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
	Message string      `json:"message"`
}

// Login authenticates credentials and opens a session. The console is
// admin-only: a valid credential whose user record does not carry the
// admin role gets its fresh session revoked immediately and a 403.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	fields := make(map[string]string)
	if req.Email == "" {
		fields["email"] = "Email is required"
	} else if !validEmail(req.Email) {
		fields["email"] = "Invalid email"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		writeValidationErrors(w, fields)
		return
	}

	account, err := h.authUsers.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if account == nil || !auth.CheckPassword(account.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid login credentials")
		return
	}

	sess, err := h.sessions.Create(account.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Enforcement point: resolve the role while the session is fresh
	// and undo the sign-in for non-admins.
	admin := gate.ResolveRole(r.Context(), storeDirectory{h.users}, account.Email, account.Email, h.logger)
	if !admin {
		if err := h.sessions.Delete(sess.ID); err != nil {
			h.logger.Error("revoke non-admin session", "error", err)
		}
		h.logger.Warn("non-admin sign-in rejected", "email", account.Email)
		writeError(w, http.StatusForbidden, gate.AccessDeniedMessage)
		return
	}

	profile, err := h.users.GetByEmail(account.Email)
	if err != nil || profile == nil {
		h.logger.Error("load profile after login", "email", account.Email, "error", err)
		profile = &model.User{Email: account.Email, Role: model.RoleAdmin}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("admin signed in", "email", account.Email)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:   sess.Token,
		User:    profile,
		Message: "Successfully signed in!",
	})
}

// Logout invalidates the current session. On failure the session and
// cookie are left in place so the client does not appear signed out
// while the server still holds a live session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.Delete(id.SessionID); err != nil {
		h.logger.Error("delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.hub.SendToUser(id.UserID, ws.NewMessage("session", "revoked", id.UserID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully signed out!"})
}

// Me returns the authenticated caller's identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": id.UserID,
		"email":   id.Email,
		"role":    id.Role,
	})
}
