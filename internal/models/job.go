// -----------------------------------------------------------------------
// Job - the durable description of a unit of schedulable work
// -----------------------------------------------------------------------

package models

// Job describes a schedulable unit of work. The store persists jobs by
// (group, name); the TypeTag identifies the runtime implementation via the
// type registry, the store never instantiates it.
type Job struct {
	Key         JobKey
	TypeTag     string
	Description string

	// Durable jobs survive in storage with no referencing triggers.
	Durable bool

	// DisallowConcurrentExecution requests a cluster-wide job lock while
	// the job executes.
	DisallowConcurrentExecution bool

	// PersistJobDataAfterExecution re-stores the job when its data map is
	// dirty after a completed execution.
	PersistJobDataAfterExecution bool

	// RequestsRecovery marks the job for re-execution after an unclean
	// scheduler shutdown.
	RequestsRecovery bool

	Data *DataMap
}

// NewJob creates a job with an empty data map.
func NewJob(key JobKey, typeTag string) *Job {
	return &Job{
		Key:     key,
		TypeTag: typeTag,
		Data:    NewDataMap(),
	}
}
