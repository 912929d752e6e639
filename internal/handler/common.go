package handler // handler defines http handlers for the registration API

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// getParentID extracts the authenticated parent's id from the echo
// context.  The JWT middleware stores the token subject under
// "user_id"; claims decode as float64 or string depending on how the
// issuer encoded them, so all the plausible shapes are handled.
func getParentID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case float64:
		if t < 0 {
			return 0, errors.New("negative user id")
		}
		return uint64(t), nil
	case string:
		id, err := strconv.ParseUint(strings.TrimSpace(t), 10, 64)
		if err != nil || id == 0 {
			return 0, errors.New("invalid user id")
		}
		return id, nil
	default:
		return 0, errors.New("missing user id")
	}
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
