package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flasherpro/console/internal/auth"
	"github.com/flasherpro/console/internal/store"
)

// SessionCookieName is the cookie carrying the session token for
// browser clients. API clients may send the same token as a bearer
// token instead.
const SessionCookieName = "console_session"

// RequireAuth validates the session token and populates the request
// identity. The role comes from the user-record store; a credential
// without a profile row is treated as role "user" (it will be
// provisioned on its next sign-in).
func RequireAuth(sessions *store.SessionStore, users *store.UserStore, authUsers *store.AuthUserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(token)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			account, err := authUsers.GetByID(sess.UserID)
			if err != nil || account == nil {
				unauthorized(w)
				return
			}

			id := auth.Identity{
				UserID:    sess.UserID,
				Email:     account.Email,
				SessionID: sess.ID,
			}
			if profile, err := users.GetByEmail(account.Email); err == nil && profile != nil {
				id.Role = profile.Role
			}

			ctx := auth.WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user holds the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "Access denied. Admin privileges required."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
