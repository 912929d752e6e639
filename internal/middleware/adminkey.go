package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-registration/internal/utils"
)

// RequireAdminKey returns a middleware enforcing the second factor on
// administrative routes: the X-Admin-Key header must match the configured
// bcrypt hash.  An ADMIN token alone is not enough to consume the hidden
// buffer or confirm payments; the shared key is handed out operationally.
func RequireAdminKey(keyHash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get("X-Admin-Key")
			if key == "" {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin key required"})
			}
			if !utils.VerifyAdminKey(keyHash, key) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid admin key"})
			}
			return next(c)
		}
	}
}
