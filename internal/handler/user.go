package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

// UserHandler serves the user directory. The sign-in path provisions
// records lazily, so this is mostly read traffic plus the occasional
// explicit create or role change.
type UserHandler struct {
	users     *store.UserStore
	authUsers *store.AuthUserStore
	sessions  *store.SessionStore
	hub       *ws.Hub
	logger    *slog.Logger
}

func NewUserHandler(users *store.UserStore, authUsers *store.AuthUserStore, sessions *store.SessionStore, hub *ws.Hub, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, authUsers: authUsers, sessions: sessions, hub: hub, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetByEmail looks a user up by the email query param. 404 when no
// record exists so callers can distinguish absent from error.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email query param required")
		return
	}
	user, err := h.users.GetByEmail(email)
	if err != nil {
		h.logger.Error("get user by email", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
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
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		fields["role"] = "Role must be user or admin"
	}
	if len(fields) > 0 {
		writeValidationErrors(w, fields)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Email
	}

	user, err := h.users.Create(req.Email, req.DisplayName, req.Role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			writeError(w, http.StatusConflict, "user already exists")
			return
		}
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user created", "email", user.Email, "role", user.Role)
	writeJSON(w, http.StatusCreated, user)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRole changes a user's role. Dropping someone from admin also
// revokes their active sessions; the console only admits admins, so a
// stale session would otherwise stay signed in until it expired.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req updateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		writeValidationErrors(w, map[string]string{"role": "Role must be user or admin"})
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.users.UpdateRole(id, req.Role); err != nil {
		h.logger.Error("update user role", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Role != model.RoleAdmin {
		h.revokeSessions(user.Email)
	}

	updated, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("get user", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("user role updated", "email", user.Email, "role", req.Role)
	h.hub.Broadcast(ws.NewMessage("user", "updated", id, nil))
	writeJSON(w, http.StatusOK, updated)
}

// revokeSessions signs the account behind email out everywhere.
// Sessions are keyed by the credential row, not the profile row, and a
// profile can exist without a credential; nothing to do in that case.
func (h *UserHandler) revokeSessions(email string) {
	account, err := h.authUsers.GetByEmail(email)
	if err != nil {
		h.logger.Error("get auth user", "email", email, "error", err)
		return
	}
	if account == nil {
		return
	}
	if err := h.sessions.DeleteByUserID(account.ID); err != nil {
		h.logger.Error("revoke sessions", "email", email, "error", err)
		return
	}
	h.hub.SendToUser(account.ID, ws.NewMessage("session", "revoked", account.ID, nil))
}
