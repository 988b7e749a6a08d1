package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRoles restricts a route to requests whose token role matches one
// of the allowed roles. Runs after JWTMiddleware has populated the context.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || role == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
		}
	}
}
