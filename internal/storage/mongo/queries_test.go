package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/tempo/internal/common"
	"github.com/ternarybob/tempo/internal/models"
)

// fixedCalendar excludes nothing; the store only round-trips it.
type fixedCalendar struct {
	Excluded []string `json:"excluded"`
}

func (fixedCalendar) IsTimeIncluded(time.Time) bool { return true }

func TestKeyAndGroupQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	batch := models.NewJob(models.NewJobKeyWithGroup("batch", "nightly"), "jobs.Test")
	batch.Durable = true
	online := models.NewJob(models.NewJobKeyWithGroup("online", "refresh"), "jobs.Test")
	online.Durable = true
	for _, job := range []*models.Job{batch, online} {
		_, err := env.store.StoreJob(ctx, job, false)
		require.NoError(t, err)
	}

	trigger := newGroupedTrigger("batch-triggers", "nightly-t", "ignored", env.clock)
	trigger.SetJobKey(batch.Key)
	require.NoError(t, env.store.StoreTrigger(ctx, trigger, false))

	keys, err := env.store.GetJobKeys(ctx, models.GroupEquals("batch"))
	require.NoError(t, err)
	require.Equal(t, []models.JobKey{batch.Key}, keys)

	keys, err = env.store.GetJobKeys(ctx, models.GroupStartsWith("on"))
	require.NoError(t, err)
	require.Equal(t, []models.JobKey{online.Key}, keys)

	allKeys, err := env.store.GetJobKeys(ctx, models.AnyGroup())
	require.NoError(t, err)
	require.Len(t, allKeys, 2)

	groups, err := env.store.GetJobGroupNames(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"batch", "online"}, groups)

	triggerKeys, err := env.store.GetTriggerKeys(ctx, models.GroupContains("triggers"))
	require.NoError(t, err)
	require.Equal(t, []models.TriggerKey{trigger.Key()}, triggerKeys)

	triggerGroups, err := env.store.GetTriggerGroupNames(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"batch-triggers"}, triggerGroups)

	forJob, err := env.store.GetTriggersForJob(ctx, batch.Key)
	require.NoError(t, err)
	require.Len(t, forJob, 1)
	require.Equal(t, trigger.Key(), forJob[0].Key())

	forMissing, err := env.store.GetTriggersForJob(ctx, models.NewJobKey("missing"))
	require.NoError(t, err)
	require.Empty(t, forMissing)
}

func TestCalendarStorage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cal := fixedCalendar{Excluded: []string{"2026-12-25"}}
	require.NoError(t, env.store.StoreCalendar(ctx, "holidays", cal, false, false))

	err := env.store.StoreCalendar(ctx, "holidays", cal, false, false)
	require.ErrorIs(t, err, models.ErrAlreadyExists)

	require.NoError(t, env.store.StoreCalendar(ctx, "holidays", cal, true, false))

	count, err := env.store.GetNumberOfCalendars(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count, "replace must not duplicate the calendar")

	err = env.store.StoreCalendar(ctx, "holidays", cal, true, true)
	require.ErrorIs(t, err, models.ErrUnsupported)

	_, err = env.store.RetrieveCalendar(ctx, "holidays")
	require.ErrorIs(t, err, models.ErrUnsupported)
	_, err = env.store.GetCalendarNames(ctx)
	require.ErrorIs(t, err, models.ErrUnsupported)

	removed, err := env.store.RemoveCalendar(ctx, "holidays")
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = env.store.RemoveCalendar(ctx, "holidays")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestStoreJobsAndTriggersUnsupported(t *testing.T) {
	env := newTestEnv(t)
	err := env.store.StoreJobsAndTriggers(context.Background(), nil, false)
	require.ErrorIs(t, err, models.ErrUnsupported)
}

func TestClearAllSchedulingData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.StoreJob(ctx, newTestJob("wipe-job"), false)
	require.NoError(t, err)
	trigger := newDueTrigger("wipe-trigger", "wipe-job", env.clock)
	require.NoError(t, env.store.StoreTrigger(ctx, trigger, false))
	require.NoError(t, env.store.StoreCalendar(ctx, "wipe-cal", fixedCalendar{}, false, false))
	_, err = env.store.PauseTriggers(ctx, models.AnyGroup())
	require.NoError(t, err)

	// Locks survive the wipe.
	acquired, err := env.store.AcquireNextTriggers(ctx, env.clock.Now(), 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, acquired, "paused triggers are not acquirable")
	require.NoError(t, env.store.ResumeTrigger(ctx, trigger.Key()))
	acquired, err = env.store.AcquireNextTriggers(ctx, env.clock.Now(), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	require.NoError(t, env.store.ClearAllSchedulingData(ctx))

	jobs, err := env.store.GetNumberOfJobs(ctx)
	require.NoError(t, err)
	require.Zero(t, jobs)
	triggerCount, err := env.store.GetNumberOfTriggers(ctx)
	require.NoError(t, err)
	require.Zero(t, triggerCount)
	calendars, err := env.store.GetNumberOfCalendars(ctx)
	require.NoError(t, err)
	require.Zero(t, calendars)
	groups, err := env.store.GetPausedTriggerGroups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)

	locks, err := env.store.GetNumberOfLocks(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, locks, "locks are left for their owners")
}

func TestBootstrapPreservesPeerLocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.StoreJob(ctx, newTestJob("peer-job"), false)
	require.NoError(t, err)
	require.NoError(t, env.store.StoreTrigger(ctx, newDueTrigger("peer-trigger", "peer-job", env.clock), false))

	acquired, err := env.store.AcquireNextTriggers(ctx, env.clock.Now(), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	// A different instance starting up clears only its own locks.
	node2 := env.secondNode(t)

	locks, err := node2.GetNumberOfLocks(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, locks)
}

func TestBootstrapClearsOwnStaleLocks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.store.StoreJob(ctx, newTestJob("stale-job"), false)
	require.NoError(t, err)
	trigger := newDueTrigger("stale-trigger", "stale-job", env.clock)
	require.NoError(t, env.store.StoreTrigger(ctx, trigger, false))

	acquired, err := env.store.AcquireNextTriggers(ctx, env.clock.Now(), 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, acquired, 1)

	// A restart of the same instance id reclaims its own locks without
	// waiting for expiry.
	restarted, err := NewStore(ctx, common.GetLogger(), env.cfg, env.signaler, withClock(env.clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = restarted.Shutdown(ctx) })

	locks, err := restarted.GetNumberOfLocks(ctx)
	require.NoError(t, err)
	require.Zero(t, locks)
}
