package models

import "time"

// Lock is a claim on a trigger or on a job's concurrency slot. At most one
// lock per (group, name) exists at any instant, enforced by the unique
// index on the locks collection.
type Lock struct {
	Group      string
	Name       string
	InstanceID string
	LockTime   time.Time
}

// IsExpired reports whether the lock is older than timeout at the given
// observation time. Expired locks may be reclaimed by any node.
func (l Lock) IsExpired(now time.Time, timeout time.Duration) bool {
	return now.Sub(l.LockTime) > timeout
}
