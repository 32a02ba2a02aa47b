package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flasherpro/console/internal/auth"
	"github.com/flasherpro/console/internal/backup"
	"github.com/flasherpro/console/internal/config"
	"github.com/flasherpro/console/internal/database"
	"github.com/flasherpro/console/internal/logging"
	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/server"
	"github.com/flasherpro/console/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedAdmin(cfg, db, logger); err != nil {
		logger.Error("seed admin account", "error", err)
		os.Exit(1)
	}

	srv := server.New(db, server.Config{
		LicenseSecret: []byte(cfg.LicenseSecret),
		Backup:        cfg.Backup,
	}, logger)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	backupCtx, backupCancel := context.WithCancel(context.Background())
	defer backupCancel()
	srv.BackupManager().Start(backupCtx)
	if srv.BackupManager().Status().State == backup.StateDisabled {
		logger.Info("backups disabled, no S3 credentials configured")
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("cleanup expired sessions", "error", err)
				} else if n > 0 {
					logger.Info("cleaned up expired sessions", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("console starting", "addr", ":"+cfg.Port, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cleanupCancel()
	backupCancel()
	srv.BackupManager().Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// seedAdmin creates the first admin account from the environment when
// no account exists for that email yet. Subsequent boots are a no-op.
func seedAdmin(cfg *config.Config, db *sql.DB, logger *slog.Logger) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	authUsers := store.NewAuthUserStore(db)
	users := store.NewUserStore(db)

	existing, err := authUsers.GetByEmail(cfg.AdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if _, err := authUsers.Create(cfg.AdminEmail, hash); err != nil {
		return err
	}

	record, err := users.GetByEmail(cfg.AdminEmail)
	if err != nil {
		return err
	}
	if record == nil {
		if _, err := users.Create(cfg.AdminEmail, cfg.AdminEmail, model.RoleAdmin); err != nil {
			return err
		}
	} else if record.Role != model.RoleAdmin {
		if err := users.UpdateRole(record.ID, model.RoleAdmin); err != nil {
			return err
		}
	}

	logger.Info("seeded admin account", "email", cfg.AdminEmail)
	return nil
}
