package models

// Document field names shared by the codec, query helper and store.
// Jobs, triggers and locks are keyed by the compound (group, name) pair;
// calendars are keyed by name alone.
const (
	FieldID    = "_id"
	FieldGroup = "group"
	FieldName  = "name"

	// Shared job/trigger fields
	FieldTypeTag     = "typeTag"
	FieldDescription = "description"
	FieldDataMap     = "dataMap"

	// Job fields
	FieldDurable              = "durable"
	FieldDisallowConcurrent   = "disallowConcurrentExecution"
	FieldPersistDataAfterExec = "persistJobDataAfterExecution"
	FieldRequestsRecovery     = "requestsRecovery"

	// Trigger fields
	FieldJobID              = "jobId"
	FieldState              = "state"
	FieldCalendarName       = "calendarName"
	FieldStartTime          = "startTime"
	FieldEndTime            = "endTime"
	FieldNextFireTime       = "nextFireTime"
	FieldPreviousFireTime   = "previousFireTime"
	FieldFinalFireTime      = "finalFireTime"
	FieldFireInstanceID     = "fireInstanceId"
	FieldMisfireInstruction = "misfireInstruction"
	FieldPriority           = "priority"

	// Lock fields
	FieldLockInstanceID = "instanceId"
	FieldLockTime       = "lockTime"

	// Calendar fields
	FieldCalendarBlob = "serializedObject"
)

// JobConcurrencyLockPrefix distinguishes job-level concurrency locks from
// trigger locks inside the shared locks collection.
const JobConcurrencyLockPrefix = "jobconcurrentlock:"
