package triggers

import (
	"testing"
	"time"

	"github.com/ternarybob/tempo/internal/models"
)

func newTestCron(t *testing.T, start time.Time, expression string) *CronTrigger {
	t.Helper()
	trigger, err := NewCronTrigger(
		models.NewTriggerKey("cron-test"),
		models.NewJobKey("job"),
		start, expression,
	)
	if err != nil {
		t.Fatalf("NewCronTrigger(%q) failed: %v", expression, err)
	}
	return trigger
}

func TestCronTriggerRejectsInvalidExpression(t *testing.T) {
	_, err := NewCronTrigger(
		models.NewTriggerKey("bad"),
		models.NewJobKey("job"),
		time.Now(), "not a cron expression",
	)
	if err == nil {
		t.Fatal("expected an error for an invalid expression")
	}
}

func TestCronTriggerFirstFire(t *testing.T) {
	// Daily at noon, starting mid-morning.
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")

	first := trigger.ComputeFirstFire(nil)
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if first == nil || !first.Equal(want) {
		t.Fatalf("first fire = %v, want %v", first, want)
	}
}

func TestCronTriggerFirstFireIncludesStartInstant(t *testing.T) {
	// A start time exactly on a cron boundary fires at the start time.
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")

	first := trigger.ComputeFirstFire(nil)
	if first == nil || !first.Equal(start) {
		t.Fatalf("first fire = %v, want %v", first, start)
	}
}

func TestCronTriggerAdvancesDaily(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")
	trigger.ComputeFirstFire(nil)

	trigger.Triggered(nil)
	next := trigger.NextFireTime()
	want := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
	prev := trigger.PreviousFireTime()
	wantPrev := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if prev == nil || !prev.Equal(wantPrev) {
		t.Errorf("previous = %v, want %v", prev, wantPrev)
	}
}

func TestCronTriggerSixFieldExpression(t *testing.T) {
	// Optional seconds field: every 30 seconds.
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "*/30 * * * * *")
	trigger.ComputeFirstFire(nil)

	trigger.Triggered(nil)
	next := trigger.NextFireTime()
	want := start.Add(30 * time.Second)
	if next == nil || !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestCronTriggerStopsAtEndTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")
	trigger.SetEndTime(&end)
	trigger.ComputeFirstFire(nil)

	trigger.Triggered(nil)
	if trigger.NextFireTime() != nil {
		t.Errorf("next fire past end time should be nil, got %v", trigger.NextFireTime())
	}
}

func TestCronTriggerMisfireDoNothing(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")
	trigger.SetMisfireInstruction(MisfireCronDoNothing)
	trigger.ComputeFirstFire(nil)

	trigger.UpdateAfterMisfire(nil)
	next := trigger.NextFireTime()
	if next == nil || !next.After(time.Now()) {
		t.Fatalf("next = %v, want the next scheduled fire after now", next)
	}
	if next.Hour() != 12 || next.Minute() != 0 {
		t.Errorf("next = %v, want a fire on the cron schedule", next)
	}
}

func TestCronTriggerMisfireFireOnceNow(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	trigger := newTestCron(t, start, "0 12 * * *")
	trigger.SetMisfireInstruction(MisfireCronFireOnceNow)
	trigger.ComputeFirstFire(nil)

	before := time.Now()
	trigger.UpdateAfterMisfire(nil)
	next := trigger.NextFireTime()
	if next == nil || next.Before(before) {
		t.Fatalf("next = %v, want the present", next)
	}
}
