package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// requestIdentity returns the authenticated user ID for rate-limit keys,
// or "anon".  JWT numeric claims decode as float64.
func requestIdentity(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
