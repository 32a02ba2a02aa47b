package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
	ws "github.com/flasherpro/console/internal/websocket"
)

type SettingsHandler struct {
	settings *store.SettingsStore
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, hub *ws.Hub, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, hub: hub, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.settings.Current()
	if err != nil {
		h.logger.Error("load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "no settings saved yet")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func validateSettings(a *model.AppSettings) map[string]string {
	fields := make(map[string]string)

	a.AppVersion = strings.TrimSpace(a.AppVersion)
	a.APIEndpoint = strings.TrimSpace(a.APIEndpoint)
	a.WalletAddress = strings.TrimSpace(a.WalletAddress)

	if a.AppVersion == "" {
		fields["app_version"] = "App version is required"
	}
	switch a.UpdateChannel {
	case "stable", "beta", "alpha":
	default:
		fields["update_channel"] = "Update channel must be stable, beta or alpha"
	}
	switch a.Theme {
	case "dark", "light", "system":
	default:
		fields["theme"] = "Theme must be dark, light or system"
	}
	if !strings.HasPrefix(a.AccentColor, "#") || (len(a.AccentColor) != 4 && len(a.AccentColor) != 7) {
		fields["accent_color"] = "Accent color must be a hex color"
	}
	if a.SessionTimeout < 0 {
		fields["session_timeout"] = "Session timeout cannot be negative"
	}
	switch a.DefaultNetwork {
	case "trc20", "erc20", "bep20":
	default:
		fields["default_network"] = "Default network must be trc20, erc20 or bep20"
	}
	if a.DemoMaxFlashAmount <= 0 {
		fields["demo_max_flash_amount"] = "Demo max flash amount must be positive"
	}
	if a.LiveMaxFlashAmount <= 0 {
		fields["live_max_flash_amount"] = "Live max flash amount must be positive"
	}
	if a.DefaultDelayDays < 0 {
		fields["default_delay_days"] = "Delay days cannot be negative"
	}
	if a.DefaultDelayMinutes < 0 {
		fields["default_delay_minutes"] = "Delay minutes cannot be negative"
	}
	switch a.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fields["log_level"] = "Log level must be debug, info, warn or error"
	}
	if a.APIEndpoint == "" || !validURL(a.APIEndpoint) {
		fields["api_endpoint"] = "API endpoint must be a valid URL"
	}
	if a.DepositAmount <= 0 {
		fields["deposit_amount"] = "Deposit amount must be positive"
	}
	return fields
}

// Save replaces the whole settings record. The table holds one logical
// row; the store updates it in place.
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req model.AppSettings
	if !decodeJSON(w, r, &req) {
		return
	}

	if fields := validateSettings(&req); len(fields) > 0 {
		writeValidationErrors(w, fields)
		return
	}

	saved, err := h.settings.Save(&req)
	if err != nil {
		h.logger.Error("save settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("settings saved", "id", saved.ID, "app_version", saved.AppVersion)
	h.hub.Broadcast(ws.NewMessage("settings", "updated", saved.ID, nil))
	writeJSON(w, http.StatusOK, saved)
}
