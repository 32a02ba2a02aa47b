package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/flasherpro/console/internal/model"
)

// AccessDeniedMessage is shown when a non-admin completes a fresh
// sign-in and is forcibly signed back out.
const AccessDeniedMessage = "Access denied. Admin privileges required."

// ErrNotFound is returned by Directory.FindUserByEmail when no record
// exists for the email.
var ErrNotFound = errors.New("user record not found")

// UserRecord is a user profile row in the directory.
type UserRecord struct {
	Email       string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// Directory is the user-record half of the remote service contract.
type Directory interface {
	// FindUserByEmail returns ErrNotFound when no record exists.
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	CreateUserRecord(ctx context.Context, rec UserRecord) error
}

// ResolveRole looks up the role for an authenticated email. When no
// record exists it provisions one with the default role and resolves
// non-admin, whether or not the create succeeds. Any other lookup
// failure also resolves non-admin. It never fails past the caller:
// every path settles on a definite boolean, so it is safe to re-run.
func ResolveRole(ctx context.Context, dir Directory, email, displayName string, logger *slog.Logger) bool {
	rec, err := dir.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		if displayName == "" {
			displayName = email
		}
		cerr := dir.CreateUserRecord(ctx, UserRecord{
			Email:       email,
			DisplayName: displayName,
			Role:        model.RoleUser,
		})
		if cerr != nil {
			logger.Error("create user record", "email", email, "error", cerr)
		}
		return false
	}
	if err != nil {
		// Fail closed.
		logger.Error("look up user record", "email", email, "error", err)
		return false
	}
	return rec.Role == model.RoleAdmin
}
