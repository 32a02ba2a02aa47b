package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/flasherpro/console/internal/backup"
	"github.com/flasherpro/console/internal/handler"
	"github.com/flasherpro/console/internal/middleware"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

// Config holds the server-level knobs the handlers need.
type Config struct {
	LicenseSecret []byte
	Backup        backup.Config
}

type Server struct {
	db  *sql.DB
	hub *ws.Hub

	authH       *handler.AuthHandler
	licenseH    *handler.LicenseKeyHandler
	settingsH   *handler.SettingsHandler
	dashboardH  *handler.DashboardHandler
	userH       *handler.UserHandler
	validateH   *handler.ValidateHandler
	backupH     *handler.BackupHandler
	authUsers   *store.AuthUserStore
	users       *store.UserStore
	sessions    *store.SessionStore
	rateLimiter *middleware.RateLimiter
	backupMgr   *backup.Manager
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	authUsers := store.NewAuthUserStore(db)
	users := store.NewUserStore(db)
	sessions := store.NewSessionStore(db)
	keys := store.NewLicenseKeyStore(db)
	settings := store.NewSettingsStore(db)

	backupMgr := backup.NewManager(cfg.Backup, db, logger.With("component", "backup"))

	return &Server{
		db:          db,
		hub:         hub,
		authH:       handler.NewAuthHandler(authUsers, users, sessions, hub, logger.With("component", "auth")),
		licenseH:    handler.NewLicenseKeyHandler(keys, hub, logger.With("component", "license_key")),
		settingsH:   handler.NewSettingsHandler(settings, hub, logger.With("component", "settings")),
		dashboardH:  handler.NewDashboardHandler(keys, users, logger.With("component", "dashboard")),
		userH:       handler.NewUserHandler(users, authUsers, sessions, hub, logger.With("component", "user")),
		validateH:   handler.NewValidateHandler(keys, cfg.LicenseSecret, logger.With("component", "validate")),
		backupH:     handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		authUsers:   authUsers,
		users:       users,
		sessions:    sessions,
		rateLimiter: middleware.NewRateLimiter(),
		backupMgr:   backupMgr,
		logger:      logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/license/validate", s.rateLimitedHandler(s.validateH.Validate))

	// Protected routes, admin only
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessions, s.users, s.authUsers)
	outerMux.Handle("/", authMiddleware(middleware.RequireAdmin(protectedMux)))

	httpLogger := s.logger.With("component", "http")
	return middleware.RequestID(middleware.RequestLogger(httpLogger)(outerMux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// License key API routes
	mux.HandleFunc("GET /api/license-keys", s.licenseH.List)
	mux.HandleFunc("POST /api/license-keys", s.licenseH.Create)
	mux.HandleFunc("GET /api/license-keys/{id}", s.licenseH.Get)
	mux.HandleFunc("PUT /api/license-keys/{id}", s.licenseH.Update)
	mux.HandleFunc("DELETE /api/license-keys/{id}", s.licenseH.Delete)

	// Settings API routes
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Save)

	// Dashboard
	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Stats)

	// User directory
	mux.HandleFunc("GET /api/users", s.userH.List)
	mux.HandleFunc("GET /api/users/lookup", s.userH.GetByEmail)
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("PUT /api/users/{id}/role", s.userH.UpdateRole)

	// Backups
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backup/run", s.backupH.RunNow)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))
}
