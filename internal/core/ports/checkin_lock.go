package ports

import "context"

// CheckInLocker serialises check-in attempts for the same user across
// processes. Acquire returns a release func that must always be called.
type CheckInLocker interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}
