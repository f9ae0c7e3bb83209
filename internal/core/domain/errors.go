package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the core wraps exactly one of these so
// the transport layer can classify it with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("access forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	ErrAlreadyCheckedIn   = fmt.Errorf("%w: already checked in today", ErrConflict)
	ErrOpenSessionExists  = fmt.Errorf("%w: user already has an open attendance session", ErrConflict)
	ErrCheckInBusy        = fmt.Errorf("%w: another check-in for this user is in progress", ErrConflict)
	ErrNoOpenSession      = fmt.Errorf("%w: no active check-in found", ErrNotFound)
	ErrRecordNotFound     = fmt.Errorf("%w: attendance record not found", ErrNotFound)
	ErrNotOwner           = fmt.Errorf("%w: you are not the owner of this attendance record", ErrForbidden)
	ErrAdminOnly          = fmt.Errorf("%w: administrator role required", ErrForbidden)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrUserExists         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
)

// Validationf builds a validation error with a caller supplied message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
