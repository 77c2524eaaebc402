package entity

import (
	"time"
)

// Account is the aggregate root for the account domain.
// PasswordHash is a bcrypt hash; the raw password is never stored or logged.
type Account struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	RegistrationTime time.Time
	LastLoginTime    *time.Time

	IsBlocked  bool
	IsDeleted  bool
	IsVerified bool

	// Single-use tokens. A token and its expiry are set and cleared together.
	VerificationToken       *string
	VerificationTokenExpiry *time.Time
	ResetToken              *string
	ResetTokenExpiry        *time.Time

	// Snapshot of IsBlocked taken at soft-delete time; meaningful only while
	// IsDeleted is true, reset to false on restore.
	WasBlockedBeforeDelete bool
}

// Status is the composite lifecycle state of an account. When several flags are
// set at once the most severe one wins: Deleted > Blocked > Unverified > Active.
type Status int

const (
	StatusActive Status = iota
	StatusUnverified
	StatusBlocked
	StatusDeleted
)

func (s Status) String() string {
	switch s {
	case StatusDeleted:
		return "deleted"
	case StatusBlocked:
		return "blocked"
	case StatusUnverified:
		return "unverified"
	default:
		return "active"
	}
}

// Status resolves the composite lifecycle state by severity.
func (a *Account) Status() Status {
	switch {
	case a.IsDeleted:
		return StatusDeleted
	case a.IsBlocked:
		return StatusBlocked
	case !a.IsVerified:
		return StatusUnverified
	default:
		return StatusActive
	}
}

// SessionEligible reports whether an already-established session may continue.
// A deleted account is treated as not-loggable-in regardless of its raw
// blocked flag.
func (a *Account) SessionEligible() bool {
	return !a.IsDeleted && !a.IsBlocked
}
