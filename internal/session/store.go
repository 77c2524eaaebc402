// Package session tracks server-side login state. A session is keyed by the
// account's stable id; the cookie token only carries the id plus a session id
// that must match the stored one, so revocation is immediate.
package session

import (
	"context"
	"time"
)

type Session struct {
	SID       string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Store is an opaque key-value session store with idle expiry. Get refreshes
// nothing; callers Touch explicitly to slide the expiry window.
type Store interface {
	Create(ctx context.Context, accountID string, s Session) error
	Get(ctx context.Context, accountID string) (Session, bool, error)
	Touch(ctx context.Context, accountID string) error
	Destroy(ctx context.Context, accountID string) error
}
