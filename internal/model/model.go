package model

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// License key statuses.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusSuspended = "suspended"
)

// License key types.
const (
	TypeDemo = "demo"
	TypeLive = "live"
)

// AuthUser is a credential record. It is the account the sign-in
// endpoint authenticates against; the profile and role live in User,
// keyed by the same email.
type AuthUser struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is a profile record with the role that gates console access.
// One record per email; created lazily with role "user" the first time
// an authenticated email has no record.
type User struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type LicenseKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	UserEmail string    `json:"user"`
	MaxAmount float64   `json:"max_amount"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the key should be treated as usable at the
// given instant. The stored status and the expiry timestamp can
// disagree; expiry is always recomputed from the timestamp.
func (k *LicenseKey) Active(now time.Time) bool {
	return k.Status == StatusActive && k.ExpiresAt.After(now)
}

// Expired reports whether the key is expired at the given instant,
// either by stored status or by timestamp.
func (k *LicenseKey) Expired(now time.Time) bool {
	return k.Status == StatusExpired || !k.ExpiresAt.After(now)
}

// AppSettings is the client product's configuration. Logically a
// singleton: reads always take the most recent row.
type AppSettings struct {
	ID                       int64     `json:"id"`
	AppVersion               string    `json:"app_version"`
	UpdateChannel            string    `json:"update_channel"`
	AutoUpdate               bool      `json:"auto_update"`
	Theme                    string    `json:"theme"`
	AccentColor              string    `json:"accent_color"`
	AnimationsEnabled        bool      `json:"animations_enabled"`
	SessionTimeout           int64     `json:"session_timeout"`
	RequirePasswordOnStartup bool      `json:"require_password_on_startup"`
	TwoFactorAuth            bool      `json:"two_factor_auth"`
	DefaultNetwork           string    `json:"default_network"`
	DemoMaxFlashAmount       float64   `json:"demo_max_flash_amount"`
	LiveMaxFlashAmount       float64   `json:"live_max_flash_amount"`
	DefaultDelayDays         int64     `json:"default_delay_days"`
	DefaultDelayMinutes      int64     `json:"default_delay_minutes"`
	DebugMode                bool      `json:"debug_mode"`
	LogLevel                 string    `json:"log_level"`
	APIEndpoint              string    `json:"api_endpoint"`
	DepositAmount            float64   `json:"deposit_amount"`
	TransactionFee           string    `json:"transaction_fee"`
	WalletAddress            string    `json:"wallet_address"`
	SuccessTitle             string    `json:"success_title"`
	SuccessMessage           string    `json:"success_message"`
	TransactionHash          string    `json:"transaction_hash"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type Session struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats are the summary counts shown on the console home
// screen. Active and expired are recomputed from expiry timestamps
// rather than trusting the stored status alone.
type DashboardStats struct {
	TotalLicenseKeys   int64 `json:"total_license_keys"`
	ActiveLicenseKeys  int64 `json:"active_license_keys"`
	ExpiredLicenseKeys int64 `json:"expired_license_keys"`
	TotalUsers         int64 `json:"total_users"`
}
