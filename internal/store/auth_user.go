package store

import (
	"database/sql"
	"fmt"

	"github.com/flasherpro/console/internal/model"
)

// AuthUserStore holds sign-in credentials. Profile data and roles are
// kept separately in UserStore; a credential can exist without a
// profile row, which is what makes lazy provisioning observable.
type AuthUserStore struct {
	db *sql.DB
}

func NewAuthUserStore(db *sql.DB) *AuthUserStore {
	return &AuthUserStore{db: db}
}

func scanAuthUser(scanner interface{ Scan(...any) error }) (*model.AuthUser, error) {
	var u model.AuthUser
	err := scanner.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const authUserCols = `id, email, password_hash, created_at`

func (s *AuthUserStore) Create(email, passwordHash string) (*model.AuthUser, error) {
	result, err := s.db.Exec(
		`INSERT INTO auth_users (email, password_hash) VALUES (?, ?)`,
		email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert auth user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AuthUserStore) GetByID(id int64) (*model.AuthUser, error) {
	row := s.db.QueryRow(`SELECT `+authUserCols+` FROM auth_users WHERE id = ?`, id)
	u, err := scanAuthUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth user: %w", err)
	}
	return u, nil
}

func (s *AuthUserStore) GetByEmail(email string) (*model.AuthUser, error) {
	row := s.db.QueryRow(`SELECT `+authUserCols+` FROM auth_users WHERE email = ?`, email)
	u, err := scanAuthUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auth user by email: %w", err)
	}
	return u, nil
}

func (s *AuthUserStore) UpdatePassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(
		`UPDATE auth_users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthUserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM auth_users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete auth user: %w", err)
	}
	return nil
}
