package store

import (
	"database/sql"
	"fmt"

	"github.com/flasherpro/console/internal/model"
)

// SettingsStore persists the app_settings singleton. Reads take the
// most recent row; writes go through a transaction that updates the
// current row when one exists, so concurrent first-time saves cannot
// leave two live rows behind.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func scanSettings(scanner interface{ Scan(...any) error }) (*model.AppSettings, error) {
	var a model.AppSettings
	err := scanner.Scan(
		&a.ID, &a.AppVersion, &a.UpdateChannel, &a.AutoUpdate, &a.Theme,
		&a.AccentColor, &a.AnimationsEnabled, &a.SessionTimeout,
		&a.RequirePasswordOnStartup, &a.TwoFactorAuth, &a.DefaultNetwork,
		&a.DemoMaxFlashAmount, &a.LiveMaxFlashAmount, &a.DefaultDelayDays,
		&a.DefaultDelayMinutes, &a.DebugMode, &a.LogLevel, &a.APIEndpoint,
		&a.DepositAmount, &a.TransactionFee, &a.WalletAddress,
		&a.SuccessTitle, &a.SuccessMessage, &a.TransactionHash,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const settingsCols = `id, app_version, update_channel, auto_update, theme, accent_color,
	animations_enabled, session_timeout, require_password_on_startup, two_factor_auth,
	default_network, demo_max_flash_amount, live_max_flash_amount, default_delay_days,
	default_delay_minutes, debug_mode, log_level, api_endpoint, deposit_amount,
	transaction_fee, wallet_address, success_title, success_message, transaction_hash,
	created_at, updated_at`

// Current returns the most recent settings row, or nil if none exists.
func (s *SettingsStore) Current() (*model.AppSettings, error) {
	row := s.db.QueryRow(`SELECT ` + settingsCols + ` FROM app_settings ORDER BY created_at DESC, id DESC LIMIT 1`)
	a, err := scanSettings(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get current settings: %w", err)
	}
	return a, nil
}

// Save writes the given settings as the current configuration.
func (s *SettingsStore) Save(a *model.AppSettings) (*model.AppSettings, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin save settings: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(`SELECT id FROM app_settings ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("find current settings: %w", err)
	}

	args := []any{
		a.AppVersion, a.UpdateChannel, a.AutoUpdate, a.Theme, a.AccentColor,
		a.AnimationsEnabled, a.SessionTimeout, a.RequirePasswordOnStartup,
		a.TwoFactorAuth, a.DefaultNetwork, a.DemoMaxFlashAmount,
		a.LiveMaxFlashAmount, a.DefaultDelayDays, a.DefaultDelayMinutes,
		a.DebugMode, a.LogLevel, a.APIEndpoint, a.DepositAmount,
		a.TransactionFee, a.WalletAddress, a.SuccessTitle, a.SuccessMessage,
		a.TransactionHash,
	}

	if err == sql.ErrNoRows {
		result, ierr := tx.Exec(
			`INSERT INTO app_settings (
				app_version, update_channel, auto_update, theme, accent_color,
				animations_enabled, session_timeout, require_password_on_startup,
				two_factor_auth, default_network, demo_max_flash_amount,
				live_max_flash_amount, default_delay_days, default_delay_minutes,
				debug_mode, log_level, api_endpoint, deposit_amount,
				transaction_fee, wallet_address, success_title, success_message,
				transaction_hash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			args...,
		)
		if ierr != nil {
			return nil, fmt.Errorf("insert settings: %w", ierr)
		}
		id, ierr = result.LastInsertId()
		if ierr != nil {
			return nil, fmt.Errorf("last insert id: %w", ierr)
		}
	} else {
		_, uerr := tx.Exec(
			`UPDATE app_settings SET
				app_version = ?, update_channel = ?, auto_update = ?, theme = ?, accent_color = ?,
				animations_enabled = ?, session_timeout = ?, require_password_on_startup = ?,
				two_factor_auth = ?, default_network = ?, demo_max_flash_amount = ?,
				live_max_flash_amount = ?, default_delay_days = ?, default_delay_minutes = ?,
				debug_mode = ?, log_level = ?, api_endpoint = ?, deposit_amount = ?,
				transaction_fee = ?, wallet_address = ?, success_title = ?, success_message = ?,
				transaction_hash = ?, updated_at = datetime('now')
			 WHERE id = ?`,
			append(args, id)...,
		)
		if uerr != nil {
			return nil, fmt.Errorf("update settings: %w", uerr)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save settings: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+settingsCols+` FROM app_settings WHERE id = ?`, id)
	saved, err := scanSettings(row)
	if err != nil {
		return nil, fmt.Errorf("reload settings: %w", err)
	}
	return saved, nil
}
