package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/presensi/attendance-api/internal/api/middleware"
	"github.com/presensi/attendance-api/internal/core/domain"
)

// identity is the caller as established by the Auth middleware.
type identity struct {
	UserID string
	Email  string
	Role   string
}

// ctxIdentity extracts the auth claims injected by the Auth middleware and
// fails fast before any service call when they are missing.
func ctxIdentity(c echo.Context) (identity, error) {
	id := identity{}
	id.UserID, _ = c.Get(middleware.ContextUserID).(string)
	id.Role, _ = c.Get(middleware.ContextRole).(string)
	id.Email, _ = c.Get(middleware.ContextEmail).(string)

	if id.UserID == "" || id.Role == "" {
		return identity{}, fmt.Errorf("%w: missing authentication claims", domain.ErrUnauthenticated)
	}
	return id, nil
}
