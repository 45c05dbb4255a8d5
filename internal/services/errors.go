package services

import "errors"

// Error kinds reported by the raffle core. Services wrap them with detail via
// fmt.Errorf("%w: ...") so callers can classify with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrTooLate       = errors.New("too late to schedule raffle")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrCapacity      = errors.New("not enough tickets available")
	// ErrConflict is returned when an allocation kept losing races with
	// other writers and gave up.
	ErrConflict = errors.New("conflicting concurrent update")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)
