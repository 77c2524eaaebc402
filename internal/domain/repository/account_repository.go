package repository

import (
	"context"
	"errors"
	"time"

	"github.com/userdesk/userdesk/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when a create collides with an existing
	// email (case-insensitive). Surfaced as a field-level conflict upstream.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrTokenNotFound is returned when a token does not match any pending row.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when a token matched but its expiry passed.
	ErrTokenExpired = errors.New("token expired")
)

// AccountRepository defines the persistence operations for accounts.
//
// Token consumption must be atomic: the implementation only clears a token if
// it still matches at write time, so two concurrent redemptions of the same
// token yield at most one success.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Account, error)

	// List returns all accounts ordered by status severity
	// (deleted > blocked > unverified > active), then registration time desc.
	List(ctx context.Context) ([]*entity.Account, error)

	UpdateLastLogin(ctx context.Context, id string, t time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error

	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	// FindByResetToken looks a pending reset token up without consuming it.
	FindByResetToken(ctx context.Context, token string, now time.Time) (*entity.Account, error)
	ConsumeResetToken(ctx context.Context, token string, now time.Time) (*entity.Account, error)
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*entity.Account, error)

	// Batch roster transitions. Empty id sets are a successful no-op.
	Block(ctx context.Context, ids []string) error
	Unblock(ctx context.Context, ids []string) error
	SoftDelete(ctx context.Context, ids []string) error
	Restore(ctx context.Context, ids []string, unblockAll bool) error
	RestoreAll(ctx context.Context, unblockAll bool) error
	HardDelete(ctx context.Context, ids []string) error
	PurgeUnverified(ctx context.Context) (int64, error)
}
