// Package datefmt converts between the external display date format used at
// the API boundary (day-month-year) and the internal storage format
// (year-month-day).  All functions are pure; every component that touches a
// date goes through this package so that the two conventions never mix.
package datefmt

import (
	"errors"
	"regexp"
	"time"
)

// DisplayLayout is the boundary format: dates are accepted and returned as
// day-month-year strings, e.g. "15-12-2025".
const DisplayLayout = "02-01-2006"

// StorageLayout is the internal format used for storage and comparison.
const StorageLayout = "2006-01-02"

// ErrBadDate is returned by ToStorage when the input matches neither the
// display nor the storage layout.
var ErrBadDate = errors.New("invalid date format")

// clockPattern matches hour:minute with an optional seconds component, e.g.
// "09:30" or "14:05:59".  Hours may be one or two digits.
var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// ToStorage parses a date supplied by a client.  Day-month-year input is the
// documented convention but year-month-day is accepted as well, so values
// read back from the database can be round-tripped.  Anything else yields
// ErrBadDate.
func ToStorage(display string) (time.Time, error) {
	if t, err := time.Parse(DisplayLayout, display); err == nil {
		return t, nil
	}
	if t, err := time.Parse(StorageLayout, display); err == nil {
		return t, nil
	}
	return time.Time{}, ErrBadDate
}

// ToDisplay formats a stored date for clients.  It always emits
// day-month-year regardless of what format the date arrived in.
func ToDisplay(storage time.Time) string {
	return storage.Format(DisplayLayout)
}

// ValidClock reports whether s is a valid time-of-day in hour:minute or
// hour:minute:second form.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}
