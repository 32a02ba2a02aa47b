package handler

import (
	"context"

	"github.com/flasherpro/console/internal/gate"
	"github.com/flasherpro/console/internal/store"
)

// storeDirectory adapts the user-record store to gate.Directory so the
// login path shares the gate's role-resolution semantics.
type storeDirectory struct {
	users *store.UserStore
}

func (d storeDirectory) FindUserByEmail(ctx context.Context, email string) (*gate.UserRecord, error) {
	u, err := d.users.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, gate.ErrNotFound
	}
	return &gate.UserRecord{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}, nil
}

func (d storeDirectory) CreateUserRecord(ctx context.Context, rec gate.UserRecord) error {
	_, err := d.users.Create(rec.Email, rec.DisplayName, rec.Role)
	return err
}
