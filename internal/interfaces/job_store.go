// -----------------------------------------------------------------------
// JobStore - the persistence and coordination contract for scheduler nodes
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/tempo/internal/models"
	"github.com/ternarybob/tempo/internal/triggers"
)

// FiredBundle describes a single trigger firing handed to the runtime.
type FiredBundle struct {
	Job      *models.Job
	Trigger  triggers.Trigger
	Calendar models.Calendar

	FireTime          time.Time
	ScheduledFireTime *time.Time
	PreviousFireTime  *time.Time
	NextFireTime      *time.Time
}

// JobStore is the shared schedule store. All methods are safe for
// concurrent use from many worker goroutines on many scheduler nodes;
// cross-node coordination happens exclusively through unique-index
// contention in the underlying collections.
type JobStore interface {
	// Schedule CRUD

	// StoreJob upserts a job by (group, name) and returns its storage id.
	// With replace false an existing job is left untouched and its id is
	// returned.
	StoreJob(ctx context.Context, job *models.Job, replace bool) (string, error)

	// StoreJobAndTrigger stores the job, then the trigger referencing it.
	StoreJobAndTrigger(ctx context.Context, job *models.Job, trigger triggers.Trigger) error

	// StoreJobsAndTriggers is not supported.
	StoreJobsAndTriggers(ctx context.Context, jobsAndTriggers map[*models.Job][]triggers.Trigger, replace bool) error

	// RetrieveJob loads a job; models.ErrNotFound when absent.
	RetrieveJob(ctx context.Context, key models.JobKey) (*models.Job, error)

	// RemoveJob removes the job and every trigger referencing it. It
	// reports whether a job was removed.
	RemoveJob(ctx context.Context, key models.JobKey) (bool, error)
	RemoveJobs(ctx context.Context, keys []models.JobKey) (bool, error)

	// StoreTrigger stores a trigger; the referenced job must exist. New
	// triggers enter the waiting state.
	StoreTrigger(ctx context.Context, trigger triggers.Trigger, replace bool) error

	// RetrieveTrigger loads a trigger; models.ErrNotFound when absent.
	RetrieveTrigger(ctx context.Context, key models.TriggerKey) (triggers.Trigger, error)

	// RemoveTrigger removes the trigger and, when it was the last trigger
	// of a non-durable job, the job too.
	RemoveTrigger(ctx context.Context, key models.TriggerKey) (bool, error)
	RemoveTriggers(ctx context.Context, keys []models.TriggerKey) (bool, error)

	// ReplaceTrigger swaps a trigger for a new one referencing the same
	// job, carrying the old data map across unless the new trigger set
	// one. On a failed store the old trigger is re-inserted.
	ReplaceTrigger(ctx context.Context, key models.TriggerKey, newTrigger triggers.Trigger) (bool, error)

	// Calendars

	// StoreCalendar round-trips an opaque calendar blob by name.
	// updateTriggers is not supported.
	StoreCalendar(ctx context.Context, name string, cal models.Calendar, replace, updateTriggers bool) error
	RemoveCalendar(ctx context.Context, name string) (bool, error)
	// RetrieveCalendar is not supported.
	RetrieveCalendar(ctx context.Context, name string) (models.Calendar, error)
	// GetCalendarNames is not supported.
	GetCalendarNames(ctx context.Context) ([]string, error)

	// Queries

	CheckJobExists(ctx context.Context, key models.JobKey) (bool, error)
	CheckTriggerExists(ctx context.Context, key models.TriggerKey) (bool, error)
	GetJobKeys(ctx context.Context, matcher models.GroupMatcher) ([]models.JobKey, error)
	GetTriggerKeys(ctx context.Context, matcher models.GroupMatcher) ([]models.TriggerKey, error)
	GetJobGroupNames(ctx context.Context) ([]string, error)
	GetTriggerGroupNames(ctx context.Context) ([]string, error)
	GetTriggersForJob(ctx context.Context, key models.JobKey) ([]triggers.Trigger, error)
	GetTriggerState(ctx context.Context, key models.TriggerKey) (models.TriggerState, error)
	GetNumberOfJobs(ctx context.Context) (int64, error)
	GetNumberOfTriggers(ctx context.Context) (int64, error)
	GetNumberOfCalendars(ctx context.Context) (int64, error)
	GetNumberOfLocks(ctx context.Context) (int64, error)

	// ClearAllSchedulingData wipes jobs, triggers, calendars and paused
	// group markers.
	ClearAllSchedulingData(ctx context.Context) error

	// State transitions

	PauseTrigger(ctx context.Context, key models.TriggerKey) error
	PauseTriggers(ctx context.Context, matcher models.GroupMatcher) ([]string, error)
	ResumeTrigger(ctx context.Context, key models.TriggerKey) error
	ResumeTriggers(ctx context.Context, matcher models.GroupMatcher) ([]string, error)
	PauseJob(ctx context.Context, key models.JobKey) error
	PauseJobs(ctx context.Context, matcher models.GroupMatcher) ([]string, error)
	ResumeJob(ctx context.Context, key models.JobKey) error
	ResumeJobs(ctx context.Context, matcher models.GroupMatcher) ([]string, error)
	PauseAll(ctx context.Context) error
	ResumeAll(ctx context.Context) error
	GetPausedTriggerGroups(ctx context.Context) ([]string, error)
	GetPausedJobGroups(ctx context.Context) ([]string, error)

	// Acquisition and firing

	// AcquireNextTriggers claims up to maxCount due triggers for this
	// node. A trigger qualifies when it is waiting and its next fire time
	// is no later than noLaterThan+window. The result is sorted ascending
	// by next fire time.
	AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, window time.Duration) ([]triggers.Trigger, error)

	// ReleaseAcquiredTrigger removes the trigger lock regardless of which
	// node owns it, so peers can clean up after dead nodes.
	ReleaseAcquiredTrigger(ctx context.Context, trigger triggers.Trigger) error

	// TriggersFired applies fired bookkeeping to the batch and returns the
	// bundles the runtime should execute. Triggers skipped over the job
	// concurrency guard are omitted from the result.
	TriggersFired(ctx context.Context, batch []triggers.Trigger) ([]*FiredBundle, error)

	// TriggeredJobComplete applies the completion instruction and always
	// releases the trigger lock.
	TriggeredJobComplete(ctx context.Context, trigger triggers.Trigger, job *models.Job, instruction models.CompletedExecutionInstruction) error

	// Shutdown releases the store's own resources. It closes the client
	// only when the store created it.
	Shutdown(ctx context.Context) error
}
