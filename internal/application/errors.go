package application

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password; the
	// two cases are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountBlocked     = errors.New("your account has been blocked")
	ErrAccountDeleted     = errors.New("your account has been deleted")
	// ErrEmailTaken is reported as a field-level conflict on the email field,
	// whether caught by pre-check or by the store's unique constraint.
	ErrEmailTaken = errors.New("email already exists")
	// ErrTokenInvalid collapses unknown and expired tokens into one message so
	// the caller cannot probe which it was.
	ErrTokenInvalid = errors.New("invalid or expired token")
)
