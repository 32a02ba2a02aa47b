package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/flasherpro/console/internal/model"
	"github.com/flasherpro/console/internal/store"
)

type DashboardHandler struct {
	keys   *store.LicenseKeyStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewDashboardHandler(keys *store.LicenseKeyStore, users *store.UserStore, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{keys: keys, users: users, logger: logger}
}

type dashboardResponse struct {
	Stats  model.DashboardStats `json:"stats"`
	Recent []*model.LicenseKey  `json:"recent_keys"`
}

// Stats returns the summary counts plus the five most recent keys.
// Active and expired counts come from the expiry timestamps at request
// time, not just the stored status.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, active, expired, err := h.keys.Stats(time.Now())
	if err != nil {
		h.logger.Error("license key stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	userCount, err := h.users.Count()
	if err != nil {
		h.logger.Error("user count", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	keys, err := h.keys.List()
	if err != nil {
		h.logger.Error("list license keys", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(keys) > 5 {
		keys = keys[:5]
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats: model.DashboardStats{
			TotalLicenseKeys:   total,
			ActiveLicenseKeys:  active,
			ExpiredLicenseKeys: expired,
			TotalUsers:         userCount,
		},
		Recent: keys,
	})
}
