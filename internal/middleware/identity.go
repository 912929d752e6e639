package middleware

// identity.go defines helper functions shared across middleware files.  It
// normalizes the "user_id" context value set by JWTAuth into a string for
// use in rate-limit keys.  JSON numeric claims arrive as float64 while some
// token issuers use string subjects, so both shapes are handled.  When no
// user is authenticated, "anon" is returned.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts a caller identifier from the Echo context.  It
// returns "anon" for unauthenticated requests.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "anon"
}
