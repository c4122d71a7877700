package middleware

// identity.go defines helper functions shared across middleware files.  It
// provides the identity extraction used by the rate limiter's per-user key
// strategies.  When no token is present or no relevant claim exists, "anon"
// is returned so unauthenticated traffic shares a single bucket per IP.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a stable string identifier for the authenticated
// staff member, taken from the context values JWTAuth stored.  Numeric
// subjects are formatted; anything unusable collapses to "anon".
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case int, int64, uint64:
		return fmt.Sprint(t)
	}
	return "anon"
}
