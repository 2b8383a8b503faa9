package models

import "time"

// Calendar excludes time from a trigger's schedule. The store treats
// calendars as opaque values: it serializes them on write and round-trips
// the blob, it never evaluates them.
type Calendar interface {
	// IsTimeIncluded reports whether the given time is fireable.
	IsTimeIncluded(t time.Time) bool
}
