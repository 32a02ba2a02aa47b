package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/flasherpro/console/internal/model"
)

type LicenseKeyStore struct {
	db *sql.DB
}

func NewLicenseKeyStore(db *sql.DB) *LicenseKeyStore {
	return &LicenseKeyStore{db: db}
}

func scanLicenseKey(scanner interface{ Scan(...any) error }) (*model.LicenseKey, error) {
	var lk model.LicenseKey
	err := scanner.Scan(
		&lk.ID, &lk.Key, &lk.Status, &lk.Type, &lk.UserEmail,
		&lk.MaxAmount, &lk.ExpiresAt, &lk.CreatedAt, &lk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lk, nil
}

const licenseKeyCols = `id, key, status, type, user_email, max_amount, expires_at, created_at, updated_at`

// GenerateKey creates a license key in the format UF-XXXX-XXXX-XXXX-XXXX.
func GenerateKey() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(b))
	return fmt.Sprintf("UF-%s-%s-%s-%s", h[0:4], h[4:8], h[8:12], h[12:16]), nil
}

func (s *LicenseKeyStore) Create(lk *model.LicenseKey) (*model.LicenseKey, error) {
	result, err := s.db.Exec(
		`INSERT INTO license_keys (key, status, type, user_email, max_amount, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		lk.Key, lk.Status, lk.Type, lk.UserEmail, lk.MaxAmount, lk.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert license key: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *LicenseKeyStore) GetByID(id int64) (*model.LicenseKey, error) {
	row := s.db.QueryRow(`SELECT `+licenseKeyCols+` FROM license_keys WHERE id = ?`, id)
	lk, err := scanLicenseKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license key: %w", err)
	}
	return lk, nil
}

func (s *LicenseKeyStore) GetByKey(key string) (*model.LicenseKey, error) {
	row := s.db.QueryRow(`SELECT `+licenseKeyCols+` FROM license_keys WHERE key = ?`, key)
	lk, err := scanLicenseKey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get license key by key: %w", err)
	}
	return lk, nil
}

// List returns all license keys, newest first.
func (s *LicenseKeyStore) List() ([]*model.LicenseKey, error) {
	rows, err := s.db.Query(`SELECT ` + licenseKeyCols + ` FROM license_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list license keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.LicenseKey
	for rows.Next() {
		lk, err := scanLicenseKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan license key: %w", err)
		}
		keys = append(keys, lk)
	}
	return keys, rows.Err()
}

func (s *LicenseKeyStore) Update(id int64, lk *model.LicenseKey) (*model.LicenseKey, error) {
	_, err := s.db.Exec(
		`UPDATE license_keys
		 SET key = ?, status = ?, type = ?, user_email = ?, max_amount = ?, expires_at = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		lk.Key, lk.Status, lk.Type, lk.UserEmail, lk.MaxAmount, lk.ExpiresAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update license key: %w", err)
	}
	return s.GetByID(id)
}

func (s *LicenseKeyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM license_keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete license key: %w", err)
	}
	return nil
}

// Stats computes the dashboard counts. A key counts as active only if
// its stored status is active and its expiry is in the future; it
// counts as expired if either the stored status says so or the expiry
// has passed. The stored status is advisory, so the two columns are
// not simply complements of each other.
func (s *LicenseKeyStore) Stats(now time.Time) (total, active, expired int64, err error) {
	now = now.UTC()
	err = s.db.QueryRow(
		`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'active' AND expires_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'expired' OR expires_at <= ? THEN 1 ELSE 0 END), 0)
		 FROM license_keys`,
		now, now,
	).Scan(&total, &active, &expired)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("license key stats: %w", err)
	}
	return total, active, expired, nil
}
