// Package config loads the console configuration from the environment.
// Load fails fast on missing required values so a misconfigured deploy
// dies at startup instead of at the first login.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/flasherpro/console/internal/backup"
)

type Config struct {
	Port     string
	DBPath   string
	BaseURL  string
	LogLevel string

	// LicenseSecret signs the tokens issued by the validate endpoint.
	LicenseSecret string

	// AdminEmail and AdminPassword seed the first admin account when
	// the user table is empty. Optional after first boot.
	AdminEmail    string
	AdminPassword string

	Backup backup.Config
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:          envOr("CONSOLE_PORT", "8080"),
		DBPath:        envOr("CONSOLE_DB_PATH", "console.db"),
		LogLevel:      os.Getenv("CONSOLE_LOG_LEVEL"),
		LicenseSecret: os.Getenv("CONSOLE_LICENSE_SECRET"),
		AdminEmail:    os.Getenv("CONSOLE_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("CONSOLE_ADMIN_PASSWORD"),
	}

	cfg.BaseURL = envOr("CONSOLE_BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port))

	if cfg.LicenseSecret == "" {
		return nil, fmt.Errorf("missing required environment variable CONSOLE_LICENSE_SECRET")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("CONSOLE_BASE_URL is not a valid URL: %w", err)
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("CONSOLE_ADMIN_EMAIL and CONSOLE_ADMIN_PASSWORD must be set together")
	}

	cfg.Backup = backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("CONSOLE_S3_ENDPOINT"),
			Bucket:    os.Getenv("CONSOLE_S3_BUCKET"),
			Region:    envOr("CONSOLE_S3_REGION", "auto"),
			AccessKey: os.Getenv("CONSOLE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("CONSOLE_S3_SECRET_KEY"),
			Prefix:    envOr("CONSOLE_S3_PREFIX", "console"),
		},
		Passphrase: os.Getenv("CONSOLE_BACKUP_PASSPHRASE"),
	}
	if v := os.Getenv("CONSOLE_BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CONSOLE_BACKUP_INTERVAL is not a duration: %w", err)
		}
		cfg.Backup.Interval = d
	}
	if v := os.Getenv("CONSOLE_BACKUP_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("CONSOLE_BACKUP_RETENTION_DAYS must be a positive integer")
		}
		cfg.Backup.RetentionDays = n
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
