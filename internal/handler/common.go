package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// actorID extracts the authenticated staff member's ID from the context,
// where the JWT middleware stored the token subject.  It returns 0 when the
// value is missing or not numeric; callers treat that as "no creator
// recorded" rather than an error, since some tokens carry non-staff
// subjects.
func actorID(c echo.Context) uint64 {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t
	case int:
		return uint64(t)
	case int64:
		return uint64(t)
	case float64:
		return uint64(t)
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// pathID parses the numeric :id path parameter.  ok is false for missing,
// non-numeric or zero values.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
