package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/presensi/attendance-api/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}
	denied := domain.ErrForbidden
	if len(allowed) == 1 {
		if _, ok := allowed[domain.RoleAdmin]; ok {
			denied = domain.ErrAdminOnly
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if _, ok := allowed[role]; !ok {
				return denied
			}
			return next(c)
		}
	}
}
