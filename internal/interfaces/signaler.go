package interfaces

import (
	"time"

	"github.com/ternarybob/tempo/internal/triggers"
)

// SchedulerSignaler is the store's channel back to the scheduler runtime.
// The store never blocks on it; implementations must be fast and safe for
// concurrent invocation.
type SchedulerSignaler interface {
	// NotifyTriggerMisfired is called with a clone of the trigger when a
	// misfire was detected, before the misfire instruction is applied.
	NotifyTriggerMisfired(t triggers.Trigger)

	// NotifyTriggerFinalized is called when a trigger will never fire
	// again.
	NotifyTriggerFinalized(t triggers.Trigger)

	// SignalSchedulingChange tells the runtime the schedule changed and
	// the next fire may be earlier than it currently believes.
	SignalSchedulingChange(candidateNewNextFireTime time.Time)
}
